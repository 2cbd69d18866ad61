package pbc

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/lucasbrandao/pr/internal/bytecode"
)

func moduloExemplo() *bytecode.Modulo {
	m := bytecode.NovoModulo()
	m.Constantes = []bytecode.Constante{
		{Tipo: bytecode.CONST_INTEIRO, Inteiro: 42},
		{Tipo: bytecode.CONST_TEXTO, Texto: "ola"},
	}
	m.Classes = []bytecode.Classe{
		{
			FQN:        "Base",
			BaseIndice: -1,
			IndiceCtor: 0,
			VTable:     []bytecode.SlotMetodo{{Chave: "saudar", IndiceCodeBlock: 1}},
		},
	}
	m.Metodos = []bytecode.CodeBlock{
		{CodeID: "ctor:Base", NumLocais: 1, NumParam: 0, Instrucoes: []bytecode.Instrucao{
			{Op: bytecode.RET_VOID, Linha: 1},
		}},
		{CodeID: "method:Base::saudar", NumLocais: 1, NumParam: 0, Instrucoes: []bytecode.Instrucao{
			{Op: bytecode.LOAD_CONST_TEXT, OperandoA: 1, Linha: 2},
			{Op: bytecode.PRINT, Linha: 2},
			{Op: bytecode.RET_VOID, Linha: 2},
		}},
	}
	m.InitEstatico = bytecode.CodeBlock{CodeID: "global:init"}
	m.PontoEntrada = bytecode.CodeBlock{CodeID: "global", Instrucoes: []bytecode.Instrucao{
		{Op: bytecode.NEW, OperandoA: 0, Texto: "Base", Linha: 3},
		{Op: bytecode.POP, Linha: 3},
	}}
	return m
}

func TestRoundTrip(t *testing.T) {
	m := moduloExemplo()

	data, err := Codificar(m)
	if err != nil {
		t.Fatalf("Codificar: %v", err)
	}
	if !bytes.HasPrefix(data, []byte(Magic)) {
		t.Fatalf("arquivo não começa com magic %q: %x", Magic, data[:4])
	}

	got, err := Decodificar(data)
	if err != nil {
		t.Fatalf("Decodificar: %v", err)
	}

	if diff := cmp.Diff(m, got); diff != "" {
		t.Errorf("módulo decodificado difere do original (-want +got):\n%s", diff)
	}
}

func TestMagicInvalido(t *testing.T) {
	_, err := Decodificar([]byte("NOPE"))
	if err == nil {
		t.Fatal("esperava erro para magic inválido")
	}
}

func TestVersaoNaoSuportada(t *testing.T) {
	data, err := Codificar(moduloExemplo())
	if err != nil {
		t.Fatalf("Codificar: %v", err)
	}
	// byte 4-5 é a versão (big-endian u16), logo após os 4 bytes de magic.
	corrompido := bytes.Clone(data)
	corrompido[5] = 99
	if _, err := Decodificar(corrompido); err == nil {
		t.Fatal("esperava erro para versão não suportada")
	}
}

func TestEntradaComParametrosInvalida(t *testing.T) {
	m := moduloExemplo()
	m.PontoEntrada.NumParam = 1
	data, err := Codificar(m)
	if err != nil {
		t.Fatalf("Codificar: %v", err)
	}
	if _, err := Decodificar(data); err == nil {
		t.Fatal("esperava erro: ponto de entrada não pode ter parâmetros")
	}
}

func TestVTableForaDeAlcanceInvalida(t *testing.T) {
	m := moduloExemplo()
	m.Classes[0].VTable[0].IndiceCodeBlock = 99
	data, err := Codificar(m)
	if err != nil {
		t.Fatalf("Codificar: %v", err)
	}
	if _, err := Decodificar(data); err == nil {
		t.Fatal("esperava erro: vtable referencia método fora de alcance")
	}
}
