package vm

import (
	"bytes"
	"strings"
	"testing"

	"github.com/lucasbrandao/pr/internal/bytecode"
)

// blocoFunc monta um *bytecode.Modulo com uma única função "func:alvo" e
// roda-a com `args`, devolvendo o valor de retorno — o suficiente para
// testar uma sequência de instruções isolada sem montar um módulo
// inteiro em cada teste.
func rodarFuncao(t *testing.T, nlocais, nparam int, instrucoes []bytecode.Instrucao, constantes []bytecode.Constante, args []Valor) Valor {
	t.Helper()
	m := bytecode.NovoModulo()
	m.Constantes = constantes
	m.Metodos = []bytecode.CodeBlock{
		{CodeID: "func:alvo", NumLocais: nlocais, NumParam: nparam, Instrucoes: instrucoes},
	}
	maq := NovaMaquina(m)
	v, _, err := maq.rodarBloco(&m.Metodos[0], args)
	if err != nil {
		t.Fatalf("rodarBloco: %v", err)
	}
	return v
}

func TestAritmeticaInteira(t *testing.T) {
	// (2 + 3) * 4 == 20
	consts := []bytecode.Constante{
		{Tipo: bytecode.CONST_INTEIRO, Inteiro: 2},
		{Tipo: bytecode.CONST_INTEIRO, Inteiro: 3},
		{Tipo: bytecode.CONST_INTEIRO, Inteiro: 4},
	}
	instrs := []bytecode.Instrucao{
		{Op: bytecode.LOAD_CONST_INT, OperandoA: 0},
		{Op: bytecode.LOAD_CONST_INT, OperandoA: 1},
		{Op: bytecode.ADD_I},
		{Op: bytecode.LOAD_CONST_INT, OperandoA: 2},
		{Op: bytecode.MUL_I},
		{Op: bytecode.RET},
	}
	got := rodarFuncao(t, 0, 0, instrs, consts, nil)
	if got.Tag != INTEIRO || got.I != 20 {
		t.Fatalf("got %+v, want inteiro 20", got)
	}
}

func TestAritmeticaDecimalEscalaAmbosDecimais(t *testing.T) {
	// 2.5 * 1.5 == 3.75
	consts := []bytecode.Constante{
		{Tipo: bytecode.CONST_DECIMAL, Inteiro: 25000},
		{Tipo: bytecode.CONST_DECIMAL, Inteiro: 15000},
	}
	instrs := []bytecode.Instrucao{
		{Op: bytecode.LOAD_CONST_DECIMAL, OperandoA: 0},
		{Op: bytecode.LOAD_CONST_DECIMAL, OperandoA: 1},
		{Op: bytecode.MUL_I},
		{Op: bytecode.RET},
	}
	got := rodarFuncao(t, 0, 0, instrs, consts, nil)
	if got.Tag != DECIMAL || got.I != 37500 {
		t.Fatalf("got %+v, want decimal 3.75 (escalado 37500)", got)
	}
	if formatarDecimal(got.I) != "3.75" {
		t.Errorf("formatarDecimal: got %q, want %q", formatarDecimal(got.I), "3.75")
	}
}

func TestAritmeticaInteiroMaisDecimal(t *testing.T) {
	// 3 + 2.5 == 5.5 (inteiro larga para decimal)
	consts := []bytecode.Constante{
		{Tipo: bytecode.CONST_INTEIRO, Inteiro: 3},
		{Tipo: bytecode.CONST_DECIMAL, Inteiro: 25000},
	}
	instrs := []bytecode.Instrucao{
		{Op: bytecode.LOAD_CONST_INT, OperandoA: 0},
		{Op: bytecode.LOAD_CONST_DECIMAL, OperandoA: 1},
		{Op: bytecode.ADD_I},
		{Op: bytecode.RET},
	}
	got := rodarFuncao(t, 0, 0, instrs, consts, nil)
	if got.Tag != DECIMAL || got.I != 55000 {
		t.Fatalf("got %+v, want decimal 5.5 (escalado 55000)", got)
	}
}

func TestAritmeticaDivisaoInteiroPorDecimal(t *testing.T) {
	// 10 / 4.0 == 2.5
	consts := []bytecode.Constante{
		{Tipo: bytecode.CONST_INTEIRO, Inteiro: 10},
		{Tipo: bytecode.CONST_DECIMAL, Inteiro: 40000},
	}
	instrs := []bytecode.Instrucao{
		{Op: bytecode.LOAD_CONST_INT, OperandoA: 0},
		{Op: bytecode.LOAD_CONST_DECIMAL, OperandoA: 1},
		{Op: bytecode.DIV_I},
		{Op: bytecode.RET},
	}
	got := rodarFuncao(t, 0, 0, instrs, consts, nil)
	if got.Tag != DECIMAL || got.I != 25000 {
		t.Fatalf("got %+v, want decimal 2.5 (escalado 25000)", got)
	}
}

func TestModuloEscalaInvariante(t *testing.T) {
	// 7.5 % 2.0 == 1.5 — ambos decimais, mod é invariante de escala
	consts := []bytecode.Constante{
		{Tipo: bytecode.CONST_DECIMAL, Inteiro: 75000},
		{Tipo: bytecode.CONST_DECIMAL, Inteiro: 20000},
	}
	instrs := []bytecode.Instrucao{
		{Op: bytecode.LOAD_CONST_DECIMAL, OperandoA: 0},
		{Op: bytecode.LOAD_CONST_DECIMAL, OperandoA: 1},
		{Op: bytecode.MOD_I},
		{Op: bytecode.RET},
	}
	got := rodarFuncao(t, 0, 0, instrs, consts, nil)
	if got.Tag != DECIMAL || got.I != 15000 {
		t.Fatalf("got %+v, want decimal 1.5 (escalado 15000)", got)
	}
}

func TestDivisaoPorZero(t *testing.T) {
	consts := []bytecode.Constante{
		{Tipo: bytecode.CONST_INTEIRO, Inteiro: 10},
		{Tipo: bytecode.CONST_INTEIRO, Inteiro: 0},
	}
	instrs := []bytecode.Instrucao{
		{Op: bytecode.LOAD_CONST_INT, OperandoA: 0, Linha: 7},
		{Op: bytecode.LOAD_CONST_INT, OperandoA: 1, Linha: 7},
		{Op: bytecode.DIV_I, Linha: 7},
		{Op: bytecode.RET, Linha: 7},
	}
	m := bytecode.NovoModulo()
	m.Constantes = consts
	m.Metodos = []bytecode.CodeBlock{{CodeID: "func:alvo", Instrucoes: instrs}}
	maq := NovaMaquina(m)
	_, _, err := maq.rodarBloco(&m.Metodos[0], nil)
	if err == nil {
		t.Fatal("esperava erro de divisão por zero")
	}
	if ee, ok := err.(*ErroExecucao); !ok || ee.Linha != 7 || !strings.Contains(ee.Mensagem, "divisão por zero") {
		t.Errorf("erro inesperado: %v", err)
	}
}

func TestControleDeFluxoEnquanto(t *testing.T) {
	// soma = 0; i = 0; enquanto i < 5 { soma = soma + i; i = i + 1 }; retorne soma
	// locais: 0=soma, 1=i
	consts := []bytecode.Constante{
		{Tipo: bytecode.CONST_INTEIRO, Inteiro: 0},
		{Tipo: bytecode.CONST_INTEIRO, Inteiro: 5},
		{Tipo: bytecode.CONST_INTEIRO, Inteiro: 1},
	}
	instrs := []bytecode.Instrucao{
		{Op: bytecode.LOAD_CONST_INT, OperandoA: 0}, // soma = 0
		{Op: bytecode.STORE_LOCAL, OperandoA: 0},
		{Op: bytecode.LOAD_CONST_INT, OperandoA: 0}, // i = 0
		{Op: bytecode.STORE_LOCAL, OperandoA: 1},
		// 4: condição
		{Op: bytecode.LOAD_LOCAL, OperandoA: 1},
		{Op: bytecode.LOAD_CONST_INT, OperandoA: 1},
		{Op: bytecode.LT},
		{Op: bytecode.JMP_IF_FALSE, OperandoA: 17},
		{Op: bytecode.LOAD_LOCAL, OperandoA: 0}, // soma = soma + i
		{Op: bytecode.LOAD_LOCAL, OperandoA: 1},
		{Op: bytecode.ADD_I},
		{Op: bytecode.STORE_LOCAL, OperandoA: 0},
		{Op: bytecode.LOAD_LOCAL, OperandoA: 1}, // i = i + 1
		{Op: bytecode.LOAD_CONST_INT, OperandoA: 2},
		{Op: bytecode.ADD_I},
		{Op: bytecode.STORE_LOCAL, OperandoA: 1},
		{Op: bytecode.JMP, OperandoA: 4},
		{Op: bytecode.LOAD_LOCAL, OperandoA: 0}, // 17: retorne soma
		{Op: bytecode.RET},
	}
	got := rodarFuncao(t, 2, 0, instrs, consts, nil)
	if got.Tag != INTEIRO || got.I != 10 {
		t.Fatalf("got %+v, want inteiro 10 (0+1+2+3+4)", got)
	}
}

// moduloComHeranca monta Animal/Cachorro: Animal.falar() devolve "...",
// Cachorro sobrescreve falar() devolvendo "Au au!" — para testar
// despacho virtual por vtable.
func moduloComHeranca() *bytecode.Modulo {
	m := bytecode.NovoModulo()
	m.Constantes = []bytecode.Constante{
		{Tipo: bytecode.CONST_TEXTO, Texto: "..."},
		{Tipo: bytecode.CONST_TEXTO, Texto: "Au au!"},
	}
	// Metodos[0] = ctor:Animal, [1] = method:Animal::falar,
	// [2] = ctor:Cachorro, [3] = method:Cachorro::falar
	m.Metodos = []bytecode.CodeBlock{
		{CodeID: "ctor:Animal", NumLocais: 1, TemEste: true, Instrucoes: []bytecode.Instrucao{
			{Op: bytecode.RET_VOID},
		}},
		{CodeID: "method:Animal::falar", NumLocais: 1, TemEste: true, Instrucoes: []bytecode.Instrucao{
			{Op: bytecode.LOAD_CONST_TEXT, OperandoA: 0},
			{Op: bytecode.RET},
		}},
		{CodeID: "ctor:Cachorro", NumLocais: 1, TemEste: true, Instrucoes: []bytecode.Instrucao{
			{Op: bytecode.RET_VOID},
		}},
		{CodeID: "method:Cachorro::falar", NumLocais: 1, TemEste: true, Instrucoes: []bytecode.Instrucao{
			{Op: bytecode.LOAD_CONST_TEXT, OperandoA: 1},
			{Op: bytecode.RET},
		}},
	}
	m.Classes = []bytecode.Classe{
		{
			FQN: "Animal", BaseIndice: -1, IndiceCtor: 0,
			VTable: []bytecode.SlotMetodo{{Chave: "falar", IndiceCodeBlock: 1}},
		},
		{
			FQN: "Cachorro", BaseIndice: 0, IndiceCtor: 2,
			VTable: []bytecode.SlotMetodo{{Chave: "falar", IndiceCodeBlock: 3}},
		},
	}
	m.InitEstatico = bytecode.CodeBlock{CodeID: "global:init"}
	return m
}

func TestDespachoVirtual(t *testing.T) {
	m := moduloComHeranca()
	maq := NovaMaquina(m)

	// NEW Cachorro (classe 1); CALL_METHOD slot 0 ("falar")
	bloco := &bytecode.CodeBlock{CodeID: "global", Instrucoes: []bytecode.Instrucao{
		{Op: bytecode.NEW, OperandoA: 0, Texto: "Cachorro"},
		{Op: bytecode.CALL_METHOD, OperandoA: 0, OperandoB: 0},
		{Op: bytecode.RET},
	}}
	got, _, err := maq.rodarBloco(bloco, nil)
	if err != nil {
		t.Fatalf("rodarBloco: %v", err)
	}
	if got.Tag != TEXTO || got.S != "Au au!" {
		t.Fatalf("got %+v, want texto \"Au au!\" (override de Cachorro)", got)
	}
}

func TestDespachoVirtualClasseBase(t *testing.T) {
	m := moduloComHeranca()
	maq := NovaMaquina(m)

	bloco := &bytecode.CodeBlock{CodeID: "global", Instrucoes: []bytecode.Instrucao{
		{Op: bytecode.NEW, OperandoA: 0, Texto: "Animal"},
		{Op: bytecode.CALL_METHOD, OperandoA: 0, OperandoB: 0},
		{Op: bytecode.RET},
	}}
	got, _, err := maq.rodarBloco(bloco, nil)
	if err != nil {
		t.Fatalf("rodarBloco: %v", err)
	}
	if got.Tag != TEXTO || got.S != "..." {
		t.Fatalf("got %+v, want texto \"...\" (Animal sem override)", got)
	}
}

func TestCamposEstaticos(t *testing.T) {
	m := bytecode.NovoModulo()
	m.Constantes = []bytecode.Constante{{Tipo: bytecode.CONST_INTEIRO, Inteiro: 1}}
	m.Classes = []bytecode.Classe{
		{FQN: "Contador", BaseIndice: -1, IndiceCtor: -1,
			CamposEstaticos: []bytecode.SlotCampo{{Nome: "total", Tipo: "inteiro"}}},
	}
	m.InitEstatico = bytecode.CodeBlock{CodeID: "global:init"}
	maq := NovaMaquina(m)

	if v := maq.estaticos["Contador.total"]; v.Tag != INTEIRO || v.I != 0 {
		t.Fatalf("valor zero inicial: got %+v", v)
	}

	bloco := &bytecode.CodeBlock{CodeID: "global", Instrucoes: []bytecode.Instrucao{
		{Op: bytecode.LOAD_STATIC, Texto: "Contador.total"},
		{Op: bytecode.LOAD_CONST_INT, OperandoA: 0},
		{Op: bytecode.ADD_I},
		{Op: bytecode.STORE_STATIC, Texto: "Contador.total"},
		{Op: bytecode.LOAD_STATIC, Texto: "Contador.total"},
		{Op: bytecode.RET},
	}}
	got, _, err := maq.rodarBloco(bloco, nil)
	if err != nil {
		t.Fatalf("rodarBloco: %v", err)
	}
	if got.Tag != INTEIRO || got.I != 1 {
		t.Fatalf("got %+v, want inteiro 1", got)
	}
}

// moduloComPropriedade monta uma classe Pessoa com propriedade
// auto-implementada "idade" (campo de apoio "_idade"), para testar
// LOAD_PROP/STORE_PROP via vtable.
func moduloComPropriedade() *bytecode.Modulo {
	m := bytecode.NovoModulo()
	m.Metodos = []bytecode.CodeBlock{
		{CodeID: "ctor:Pessoa", NumLocais: 1, TemEste: true, Instrucoes: []bytecode.Instrucao{
			{Op: bytecode.RET_VOID},
		}},
		{CodeID: "method:Pessoa::get:idade", NumLocais: 1, TemEste: true, Instrucoes: []bytecode.Instrucao{
			{Op: bytecode.LOAD_LOCAL, OperandoA: 0},
			{Op: bytecode.LOAD_FIELD, Texto: "_idade"},
			{Op: bytecode.RET},
		}},
		{CodeID: "method:Pessoa::set:idade", NumLocais: 2, NumParam: 1, TemEste: true, Instrucoes: []bytecode.Instrucao{
			{Op: bytecode.LOAD_LOCAL, OperandoA: 0},
			{Op: bytecode.LOAD_LOCAL, OperandoA: 1},
			{Op: bytecode.STORE_FIELD, Texto: "_idade"},
			{Op: bytecode.RET_VOID},
		}},
	}
	m.Classes = []bytecode.Classe{
		{
			FQN: "Pessoa", BaseIndice: -1, IndiceCtor: 0,
			Campos: []bytecode.SlotCampo{{Nome: "_idade", Tipo: "inteiro"}},
			VTable: []bytecode.SlotMetodo{
				{Chave: "get:idade", IndiceCodeBlock: 1},
				{Chave: "set:idade", IndiceCodeBlock: 2},
			},
		},
	}
	m.InitEstatico = bytecode.CodeBlock{CodeID: "global:init"}
	return m
}

func TestPropriedadeAutoImplementada(t *testing.T) {
	m := moduloComPropriedade()
	m.Constantes = []bytecode.Constante{{Tipo: bytecode.CONST_INTEIRO, Inteiro: 30}}
	maq := NovaMaquina(m)

	bloco := &bytecode.CodeBlock{CodeID: "global", NumLocais: 1, Instrucoes: []bytecode.Instrucao{
		{Op: bytecode.NEW, OperandoA: 0, Texto: "Pessoa"},
		{Op: bytecode.STORE_LOCAL, OperandoA: 0},
		{Op: bytecode.LOAD_LOCAL, OperandoA: 0},
		{Op: bytecode.LOAD_CONST_INT, OperandoA: 0},
		{Op: bytecode.STORE_PROP, OperandoA: 1, Texto: "idade"},
		{Op: bytecode.LOAD_LOCAL, OperandoA: 0},
		{Op: bytecode.LOAD_PROP, OperandoA: 0, Texto: "idade"},
		{Op: bytecode.RET},
	}}
	got, _, err := maq.rodarBloco(bloco, nil)
	if err != nil {
		t.Fatalf("rodarBloco: %v", err)
	}
	if got.Tag != INTEIRO || got.I != 30 {
		t.Fatalf("got %+v, want inteiro 30", got)
	}
}

func TestArrayIndexacao(t *testing.T) {
	consts := []bytecode.Constante{
		{Tipo: bytecode.CONST_INTEIRO, Inteiro: 10},
		{Tipo: bytecode.CONST_INTEIRO, Inteiro: 20},
		{Tipo: bytecode.CONST_INTEIRO, Inteiro: 30},
		{Tipo: bytecode.CONST_INTEIRO, Inteiro: 1},
		{Tipo: bytecode.CONST_INTEIRO, Inteiro: 99},
	}
	instrs := []bytecode.Instrucao{
		{Op: bytecode.LOAD_CONST_INT, OperandoA: 0},
		{Op: bytecode.LOAD_CONST_INT, OperandoA: 1},
		{Op: bytecode.LOAD_CONST_INT, OperandoA: 2},
		{Op: bytecode.NEW_ARRAY, OperandoA: 3, Texto: "inteiro"},
		{Op: bytecode.STORE_LOCAL, OperandoA: 0},
		// array[1] = 99
		{Op: bytecode.LOAD_LOCAL, OperandoA: 0},
		{Op: bytecode.LOAD_CONST_INT, OperandoA: 3},
		{Op: bytecode.CHECK_BOUNDS},
		{Op: bytecode.LOAD_CONST_INT, OperandoA: 4},
		{Op: bytecode.STORE_INDEX},
		// retorne array.tamanho + array[1]
		{Op: bytecode.LOAD_LOCAL, OperandoA: 0},
		{Op: bytecode.ARRAY_LEN},
		{Op: bytecode.LOAD_LOCAL, OperandoA: 0},
		{Op: bytecode.LOAD_CONST_INT, OperandoA: 3},
		{Op: bytecode.CHECK_BOUNDS},
		{Op: bytecode.LOAD_INDEX},
		{Op: bytecode.ADD_I},
		{Op: bytecode.RET},
	}
	got := rodarFuncao(t, 1, 0, instrs, consts, nil)
	if got.Tag != INTEIRO || got.I != 102 {
		t.Fatalf("got %+v, want inteiro 102 (tamanho 3 + array[1]=99)", got)
	}
}

func TestIndiceForaDosLimites(t *testing.T) {
	consts := []bytecode.Constante{
		{Tipo: bytecode.CONST_INTEIRO, Inteiro: 10},
		{Tipo: bytecode.CONST_INTEIRO, Inteiro: 5},
	}
	instrs := []bytecode.Instrucao{
		{Op: bytecode.LOAD_CONST_INT, OperandoA: 0},
		{Op: bytecode.NEW_ARRAY, OperandoA: 1, Texto: "inteiro"},
		{Op: bytecode.LOAD_CONST_INT, OperandoA: 1, Linha: 9},
		{Op: bytecode.CHECK_BOUNDS, Linha: 9},
		{Op: bytecode.LOAD_INDEX, Linha: 9},
		{Op: bytecode.RET},
	}
	m := bytecode.NovoModulo()
	m.Constantes = consts
	m.Metodos = []bytecode.CodeBlock{{CodeID: "func:alvo", Instrucoes: instrs}}
	maq := NovaMaquina(m)
	_, _, err := maq.rodarBloco(&m.Metodos[0], nil)
	if err == nil {
		t.Fatal("esperava erro de índice fora dos limites")
	}
	if !strings.Contains(err.Error(), "fora dos limites") {
		t.Errorf("erro inesperado: %v", err)
	}
}

func TestDesreferenciaDeNulo(t *testing.T) {
	instrs := []bytecode.Instrucao{
		{Op: bytecode.LOAD_NULL, Linha: 3},
		{Op: bytecode.LOAD_FIELD, Texto: "x", Linha: 3},
		{Op: bytecode.RET},
	}
	m := bytecode.NovoModulo()
	m.Metodos = []bytecode.CodeBlock{{CodeID: "func:alvo", Instrucoes: instrs}}
	maq := NovaMaquina(m)
	_, _, err := maq.rodarBloco(&m.Metodos[0], nil)
	if err == nil {
		t.Fatal("esperava erro de desreferência de nulo")
	}
	if !strings.Contains(err.Error(), "desreferência de nulo") {
		t.Errorf("erro inesperado: %v", err)
	}
}

func TestMarcadorDeTipoIncompativel(t *testing.T) {
	instrs := []bytecode.Instrucao{
		{Op: bytecode.LOAD_CONST_TEXT, OperandoA: 0, Linha: 4},
		{Op: bytecode.NEG, Linha: 4},
		{Op: bytecode.RET},
	}
	m := bytecode.NovoModulo()
	m.Constantes = []bytecode.Constante{{Tipo: bytecode.CONST_TEXTO, Texto: "oi"}}
	m.Metodos = []bytecode.CodeBlock{{CodeID: "func:alvo", Instrucoes: instrs}}
	maq := NovaMaquina(m)
	_, _, err := maq.rodarBloco(&m.Metodos[0], nil)
	if err == nil {
		t.Fatal("esperava erro de marcador de tipo incompatível")
	}
	if !strings.Contains(err.Error(), "tipo incompatível") {
		t.Errorf("erro inesperado: %v", err)
	}
}

func TestMetodoAbstratoSemImplementacao(t *testing.T) {
	m := bytecode.NovoModulo()
	m.Classes = []bytecode.Classe{
		{FQN: "Forma", BaseIndice: -1, IndiceCtor: -1, Abstrata: true,
			VTable: []bytecode.SlotMetodo{{Chave: "area", IndiceCodeBlock: -1}}},
	}
	obj := &Objeto{ClasseIdx: 0, Campos: map[string]Valor{}}
	maq := NovaMaquina(m)
	_, err := maq.resolverSlotVirtual("method:Forma::area", 0, 1, obj, 0)
	if err == nil {
		t.Fatal("esperava erro de método abstrato sem implementação")
	}
}

func TestExecutarRodaInitEstaticoAntesDoPontoDeEntrada(t *testing.T) {
	m := bytecode.NovoModulo()
	m.Constantes = []bytecode.Constante{{Tipo: bytecode.CONST_INTEIRO, Inteiro: 7}}
	m.Classes = []bytecode.Classe{
		{FQN: "Config", BaseIndice: -1, IndiceCtor: -1,
			CamposEstaticos: []bytecode.SlotCampo{{Nome: "versao", Tipo: "inteiro"}}},
	}
	m.InitEstatico = bytecode.CodeBlock{CodeID: "global:init", Instrucoes: []bytecode.Instrucao{
		{Op: bytecode.LOAD_CONST_INT, OperandoA: 0},
		{Op: bytecode.STORE_STATIC, Texto: "Config.versao"},
	}}
	var saida bytes.Buffer
	m.PontoEntrada = bytecode.CodeBlock{CodeID: "global", Instrucoes: []bytecode.Instrucao{
		{Op: bytecode.LOAD_STATIC, Texto: "Config.versao"},
		{Op: bytecode.TO_TEXT},
		{Op: bytecode.PRINT},
	}}
	maq := NovaMaquina(m)
	maq.Saida = &saida
	if err := maq.Executar(); err != nil {
		t.Fatalf("Executar: %v", err)
	}
	if got := strings.TrimSpace(saida.String()); got != "7" {
		t.Fatalf("saída: got %q, want %q", got, "7")
	}
}
