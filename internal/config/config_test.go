package config

import (
	"os"
	"path/filepath"
	"testing"
)

const manifestoExemplo = `
[projeto]
nome = "exemplo"
entradas = ["main.pr", "lib/util.pr"]
raiz_namespace = "Exemplo"

[saida]
alvo = "bytecode"
caminho = "exemplo.pbc"

[buscas]
caminhos = ["./extra"]
`

func escreverManifesto(t *testing.T, dir string) string {
	t.Helper()
	caminho := filepath.Join(dir, "pr.toml")
	if err := os.WriteFile(caminho, []byte(manifestoExemplo), 0o644); err != nil {
		t.Fatalf("escrevendo manifesto: %v", err)
	}
	return caminho
}

func TestCarregarDecodificaTodasAsSecoes(t *testing.T) {
	dir := t.TempDir()
	caminho := escreverManifesto(t, dir)

	m, err := Carregar(caminho)
	if err != nil {
		t.Fatalf("Carregar: %v", err)
	}
	if m.Projeto.Nome != "exemplo" {
		t.Errorf("Projeto.Nome = %q, want exemplo", m.Projeto.Nome)
	}
	if len(m.Projeto.Entradas) != 2 || m.Projeto.Entradas[1] != "lib/util.pr" {
		t.Errorf("Projeto.Entradas = %v", m.Projeto.Entradas)
	}
	if m.Saida.Alvo != "bytecode" || m.Saida.Caminho != "exemplo.pbc" {
		t.Errorf("Saida = %+v", m.Saida)
	}
	if len(m.Buscas.Caminhos) != 1 || m.Buscas.Caminhos[0] != "./extra" {
		t.Errorf("Buscas.Caminhos = %v", m.Buscas.Caminhos)
	}
}

func TestEncontrarSobeAPartirDeSubdiretorio(t *testing.T) {
	raiz := t.TempDir()
	escreverManifesto(t, raiz)
	sub := filepath.Join(raiz, "a", "b")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}

	caminho, achou, err := Encontrar(sub)
	if err != nil {
		t.Fatalf("Encontrar: %v", err)
	}
	if !achou {
		t.Fatal("esperava achou=true")
	}
	esperado, _ := filepath.Abs(filepath.Join(raiz, "pr.toml"))
	if caminho != esperado {
		t.Errorf("caminho = %q, want %q", caminho, esperado)
	}
}

func TestEncontrarSemManifestoDevolveFalseSemErro(t *testing.T) {
	dir := t.TempDir()
	_, achou, err := Encontrar(dir)
	if err != nil {
		t.Fatalf("Encontrar: %v", err)
	}
	if achou {
		t.Fatal("esperava achou=false: nenhum pr.toml no diretório temporário isolado")
	}
}

func TestResolverEntradaDiretaRelativaARaiz(t *testing.T) {
	dir := t.TempDir()
	caminho := escreverManifesto(t, dir)
	m, err := Carregar(caminho)
	if err != nil {
		t.Fatalf("Carregar: %v", err)
	}

	arquivoMain := filepath.Join(dir, "main.pr")
	if err := os.WriteFile(arquivoMain, []byte("imprima(1);"), 0o644); err != nil {
		t.Fatalf("escrevendo main.pr: %v", err)
	}

	achado, err := m.ResolverEntrada("main.pr")
	if err != nil {
		t.Fatalf("ResolverEntrada: %v", err)
	}
	if achado != arquivoMain {
		t.Errorf("achado = %q, want %q", achado, arquivoMain)
	}
}

func TestResolverEntradaViaCaminhoDeBusca(t *testing.T) {
	dir := t.TempDir()
	caminho := escreverManifesto(t, dir)
	m, err := Carregar(caminho)
	if err != nil {
		t.Fatalf("Carregar: %v", err)
	}

	extraDir := filepath.Join(dir, "extra")
	if err := os.MkdirAll(extraDir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	arquivoUtil := filepath.Join(extraDir, "util.pr")
	if err := os.WriteFile(arquivoUtil, []byte("função vazio f() {}"), 0o644); err != nil {
		t.Fatalf("escrevendo util.pr: %v", err)
	}

	achado, err := m.ResolverEntrada("util.pr")
	if err != nil {
		t.Fatalf("ResolverEntrada: %v", err)
	}
	if achado != arquivoUtil {
		t.Errorf("achado = %q, want %q", achado, arquivoUtil)
	}
}

func TestResolverEntradaNaoEncontrada(t *testing.T) {
	dir := t.TempDir()
	caminho := escreverManifesto(t, dir)
	m, err := Carregar(caminho)
	if err != nil {
		t.Fatalf("Carregar: %v", err)
	}

	if _, err := m.ResolverEntrada("fantasma.pr"); err == nil {
		t.Fatal("esperava erro para entrada inexistente")
	}
}
