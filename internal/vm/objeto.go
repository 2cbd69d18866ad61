package vm

import "github.com/lucasbrandao/pr/internal/bytecode"

// Objeto é uma instância de classe alocada no heap: índice da classe mais
// concreta (para despacho virtual) e os campos de toda a cadeia de
// herança, endereçados por nome — `bytecode.Classe.Campos` só lista os
// campos declarados pela própria classe, então LOAD_FIELD/STORE_FIELD
// endereçam por nome puro independente de qual ancestral o declarou,
// assim como `campoNaCadeia` já faz em tempo de compilação.
type Objeto struct {
	ClasseIdx int
	FQN       string // cópia de Modulo.Classes[ClasseIdx].FQN, para ParaTexto não precisar do módulo
	Campos    map[string]Valor
}

// NovoObjeto aloca um objeto da classe `classeIdx`, com todos os campos da
// cadeia de herança (base antes de derivada) inicializados com o valor
// zero do seu tipo declarado — os inicializadores de campo de verdade
// rodam depois, no construtor.
func NovoObjeto(m *bytecode.Modulo, classeIdx int) *Objeto {
	var cadeia []int
	for idx := classeIdx; idx >= 0; idx = m.Classes[idx].BaseIndice {
		cadeia = append(cadeia, idx)
	}
	campos := make(map[string]Valor)
	for i := len(cadeia) - 1; i >= 0; i-- {
		for _, slot := range m.Classes[cadeia[i]].Campos {
			campos[slot.Nome] = valorZero(slot.Tipo)
		}
	}
	return &Objeto{ClasseIdx: classeIdx, FQN: m.Classes[classeIdx].FQN, Campos: campos}
}

// ArrayRuntime é um array alocado no heap: tipo do elemento (para
// mensagens de erro e depuração; a VM não faz checagem de tipo dos
// elementos em tempo de execução, já garantida estaticamente) e os
// elementos, de tamanho fixo desde a criação.
type ArrayRuntime struct {
	TipoElemento string
	Elementos    []Valor
}
