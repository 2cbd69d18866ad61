package debugger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/lucasbrandao/pr/internal/bytecode"
	"github.com/lucasbrandao/pr/internal/vm"
)

// moduloSoma monta um módulo cujo ponto de entrada calcula 2+3, guarda
// o total em um local nomeado e o imprime — o suficiente para
// exercitar pausa/passo/inspeção através da API pública de vm.Maquina
// (Executar), sem depender de nenhum outro pacote do compilador.
func moduloSoma() *bytecode.Modulo {
	m := bytecode.NovoModulo()
	m.Constantes = []bytecode.Constante{
		{Tipo: bytecode.CONST_INTEIRO, Inteiro: 2},
		{Tipo: bytecode.CONST_INTEIRO, Inteiro: 3},
	}
	m.InitEstatico = bytecode.CodeBlock{CodeID: "global:init"}
	m.PontoEntrada = bytecode.CodeBlock{
		CodeID:      "global",
		NumLocais:   1,
		NomesLocais: []string{"total"},
		Instrucoes: []bytecode.Instrucao{
			{Op: bytecode.LOAD_CONST_INT, OperandoA: 0}, // 0
			{Op: bytecode.LOAD_CONST_INT, OperandoA: 1}, // 1
			{Op: bytecode.ADD_I},                        // 2
			{Op: bytecode.STORE_LOCAL, OperandoA: 0},    // 3
			{Op: bytecode.LOAD_LOCAL, OperandoA: 0},     // 4
			{Op: bytecode.TO_TEXT},                      // 5
			{Op: bytecode.PRINT},                        // 6
		},
	}
	return m
}

func TestPassoPausaAntesDeCadaInstrucao(t *testing.T) {
	mod := moduloSoma()
	maq := vm.NovaMaquina(mod)

	var saida, depuradorSaida bytes.Buffer
	maq.Saida = &saida
	comandos := strings.Repeat("s\n", 6) + "c\n"
	dep := NovoDepurador(strings.NewReader(comandos), &depuradorSaida, true)
	maq.Gancho = dep

	if err := maq.Executar(); err != nil {
		t.Fatalf("execução: %v", err)
	}
	if got := strings.TrimSpace(saida.String()); got != "5" {
		t.Fatalf("saída do programa: got %q, want %q", got, "5")
	}
	if n := strings.Count(depuradorSaida.String(), "(depurar) "); n != 7 {
		t.Errorf("esperava 7 pausas (uma por instrução), got %d:\n%s", n, depuradorSaida.String())
	}
}

func TestBreakpointEVars(t *testing.T) {
	mod := moduloSoma()
	maq := vm.NovaMaquina(mod)
	maq.Saida = &bytes.Buffer{}

	var saida bytes.Buffer
	dep := NovoDepurador(strings.NewReader("vars\nc\n"), &saida, false)
	dep.AdicionarPonto("global", 4) // LOAD_LOCAL total, depois de STORE_LOCAL
	maq.Gancho = dep

	if err := maq.Executar(); err != nil {
		t.Fatalf("execução: %v", err)
	}
	out := saida.String()
	if !strings.Contains(out, "breakpoint em global:4") {
		t.Errorf("saída não menciona o breakpoint: %q", out)
	}
	if !strings.Contains(out, "total = 5") {
		t.Errorf("vars não mostrou total = 5: %q", out)
	}
}

func TestComandoQAbortaExecucao(t *testing.T) {
	mod := moduloSoma()
	maq := vm.NovaMaquina(mod)
	maq.Saida = &bytes.Buffer{}

	var saida bytes.Buffer
	dep := NovoDepurador(strings.NewReader("q\n"), &saida, true)
	maq.Gancho = dep

	err := maq.Executar()
	if err == nil {
		t.Fatal("esperava erro de execução abortada")
	}
	if !strings.Contains(err.Error(), "abortada") {
		t.Errorf("erro inesperado: %v", err)
	}
}

func TestComandosDeBreakpointPeloREPL(t *testing.T) {
	mod := moduloSoma()
	maq := vm.NovaMaquina(mod)
	maq.Saida = &bytes.Buffer{}

	var saida bytes.Buffer
	comandos := "bp add global 3\nbp list\nbp del global 3\nc\n"
	dep := NovoDepurador(strings.NewReader(comandos), &saida, true)
	maq.Gancho = dep

	if err := maq.Executar(); err != nil {
		t.Fatalf("execução: %v", err)
	}
	if dep.TemPonto("global", 3) {
		t.Error("breakpoint deveria ter sido removido pelo REPL")
	}
	if !strings.Contains(saida.String(), "global:3") {
		t.Errorf("bp list não mostrou o breakpoint adicionado: %q", saida.String())
	}
}

func TestDesmontarEOnde(t *testing.T) {
	mod := moduloSoma()
	maq := vm.NovaMaquina(mod)
	maq.Saida = &bytes.Buffer{}

	var saida bytes.Buffer
	dep := NovoDepurador(strings.NewReader("where\ndis 2\nc\n"), &saida, true)
	maq.Gancho = dep

	if err := maq.Executar(); err != nil {
		t.Fatalf("execução: %v", err)
	}
	out := saida.String()
	if !strings.Contains(out, "global:0 LOAD_CONST_INT 0") {
		t.Errorf("where não mostrou a instrução corrente: %q", out)
	}
	if !strings.Contains(out, "global:1 LOAD_CONST_INT 1") {
		t.Errorf("dis não desmontou a instrução seguinte: %q", out)
	}
}
