package compiler

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/lucasbrandao/pr/internal/vm"
)

// compilarEExecutar roda a pipeline completa sobre uma única fonte em
// memória e devolve o que o programa escreveu em sua saída — o mesmo
// round-trip fonte-para-stdout que os cenários S1–S6 descrevem.
func compilarEExecutar(t *testing.T, fonte string) string {
	t.Helper()
	dir := t.TempDir()
	caminho := filepath.Join(dir, "main.pr")
	if err := os.WriteFile(caminho, []byte(fonte), 0o644); err != nil {
		t.Fatalf("escrevendo fonte: %v", err)
	}

	modulo, err := NovaPipeline().Compilar([]string{caminho})
	if err != nil {
		t.Fatalf("Compilar: %v", err)
	}

	maq := vm.NovaMaquina(modulo)
	var saida bytes.Buffer
	maq.Saida = &saida
	if err := maq.Executar(); err != nil {
		t.Fatalf("Executar: %v", err)
	}
	return saida.String()
}

func TestCenarioS1AritmeticaComPrecedencia(t *testing.T) {
	if got, want := compilarEExecutar(t, "imprima(2+3*4);"), "14\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestCenarioS2CondicionalSeSenao(t *testing.T) {
	fonte := `inteiro a=10; inteiro b=5; se (a>b) { imprima("ok"); } senão { imprima("no"); }`
	if got, want := compilarEExecutar(t, fonte), "ok\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestCenarioS3LacoEnquanto(t *testing.T) {
	fonte := `inteiro c=0; enquanto (c<3) { imprima(c); c=c+1; }`
	if got, want := compilarEExecutar(t, fonte), "0\n1\n2\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestCenarioS6ArrayTamanhoEIndexacao(t *testing.T) {
	fonte := `inteiro[] v=[2,3,1]; imprima(v.tamanho); imprima(v[0]); v[2]=5; imprima(v[2]);`
	if got, want := compilarEExecutar(t, fonte), "3\n2\n5\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestCompilarParaArquivoProduzPbc(t *testing.T) {
	dir := t.TempDir()
	fonte := filepath.Join(dir, "main.pr")
	if err := os.WriteFile(fonte, []byte("imprima(1);"), 0o644); err != nil {
		t.Fatalf("escrevendo fonte: %v", err)
	}
	saida := filepath.Join(dir, "main.pbc")

	if err := NovaPipeline().CompilarParaArquivo([]string{fonte}, saida); err != nil {
		t.Fatalf("CompilarParaArquivo: %v", err)
	}
	info, err := os.Stat(saida)
	if err != nil {
		t.Fatalf("arquivo de saída não foi criado: %v", err)
	}
	if info.Size() == 0 {
		t.Error("arquivo .pbc gerado está vazio")
	}
}

func TestErroDeTipoAbortaAntesDaEmissao(t *testing.T) {
	dir := t.TempDir()
	caminho := filepath.Join(dir, "main.pr")
	fonte := `inteiro a = "texto";`
	if err := os.WriteFile(caminho, []byte(fonte), 0o644); err != nil {
		t.Fatalf("escrevendo fonte: %v", err)
	}

	if _, err := NovaPipeline().Compilar([]string{caminho}); err == nil {
		t.Fatal("esperava erro de tipo")
	}
}
