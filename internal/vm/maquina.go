package vm

import (
	"fmt"
	"io"
	"os"

	"github.com/lucasbrandao/pr/internal/bytecode"
)

// quadro é um registro de ativação (spec §4.8): o code block em
// execução, o ponteiro de instrução, e os slots locais — `este` não tem
// campo próprio, é só `locais[0]` quando `bloco.TemEste` é verdadeiro,
// do mesmo jeito que o emissor já trata `este` como um local comum.
type quadro struct {
	bloco  *bytecode.CodeBlock
	ip     int
	locais []Valor
}

// Maquina interpreta um bytecode.Modulo: pilha de valores, pilha de
// quadros de chamada, e os campos estáticos de cada classe (o módulo em
// si, incluindo sua tabela de constantes e classes, é só consultado,
// nunca modificado — "module borrowed read-only" do §4.8).
type Maquina struct {
	modulo    *bytecode.Modulo
	estaticos map[string]Valor
	pilha     []Valor
	quadros   []*quadro

	Saida  io.Writer
	Gancho GanchoDepuracao
}

// NovaMaquina monta uma máquina pronta para `Executar`, com os campos
// estáticos de toda classe inicializados no zero de seu tipo — os
// valores de verdade vêm da execução de `modulo.InitEstatico`.
func NovaMaquina(m *bytecode.Modulo) *Maquina {
	maq := &Maquina{
		modulo:    m,
		estaticos: make(map[string]Valor),
		Saida:     os.Stdout,
	}
	for _, c := range m.Classes {
		for _, slot := range c.CamposEstaticos {
			maq.estaticos[c.FQN+"."+slot.Nome] = valorZero(slot.Tipo)
		}
	}
	return maq
}

// Executar roda o código estático de inicialização e em seguida o ponto
// de entrada do módulo, nessa ordem (spec §4.9: "global:init" é distinto
// do "global" e roda antes dele).
func (m *Maquina) Executar() error {
	if _, _, err := m.rodarBloco(&m.modulo.InitEstatico, nil); err != nil {
		return err
	}
	_, _, err := m.rodarBloco(&m.modulo.PontoEntrada, nil)
	return err
}

// ExecutarBloco roda InitEstatico e então `bloco` no lugar do ponto de
// entrada do módulo — usado por `--executar-funcao` (spec §6), que troca
// o ponto de entrada por uma função livre nomeada sob o code_id
// sintético "main:Name" em vez do "func:Name" ordinário dessa mesma
// função (spec §4.9).
func (m *Maquina) ExecutarBloco(bloco *bytecode.CodeBlock) error {
	if _, _, err := m.rodarBloco(&m.modulo.InitEstatico, nil); err != nil {
		return err
	}
	_, _, err := m.rodarBloco(bloco, nil)
	return err
}

// rodarBloco empurra um novo quadro para `bloco` com os locais dados
// (preenchidos/expandidos até `bloco.NumLocais`) e executa até um RET,
// RET_VOID, ou erro. Devolve o valor de retorno e se um foi de fato
// produzido — RET_VOID não deixa nada na pilha do chamador, e essa
// distinção é o que permite o emissor decidir, em tempo de compilação,
// se uma chamada usada como comando precisa de um POP depois.
func (m *Maquina) rodarBloco(bloco *bytecode.CodeBlock, locais []Valor) (Valor, bool, error) {
	q := &quadro{bloco: bloco, locais: make([]Valor, bloco.NumLocais)}
	copy(q.locais, locais)
	m.quadros = append(m.quadros, q)
	defer func() { m.quadros = m.quadros[:len(m.quadros)-1] }()

	basePilha := len(m.pilha)
	for q.ip < len(bloco.Instrucoes) {
		if m.Gancho != nil {
			if err := m.Gancho.AntesDeInstrucao(bloco.CodeID, q.ip, m); err != nil {
				return ValorNulo, false, err
			}
		}
		instr := bloco.Instrucoes[q.ip]
		ret, temValor, feito, err := m.executarInstrucao(q, instr)
		if err != nil {
			return ValorNulo, false, err
		}
		if feito {
			m.pilha = m.pilha[:basePilha]
			return ret, temValor, nil
		}
	}
	m.pilha = m.pilha[:basePilha]
	return ValorNulo, false, nil
}

// QuadroAtual expõe o estado do quadro no topo da pilha de chamadas —
// consultado pelo depurador a partir do `*Maquina` recebido em
// `GanchoDepuracao.AntesDeInstrucao` para implementar `vars`/`v <nome>`/
// `where`/`dis` (spec §4.9) sem expor o tipo `quadro` em si.
func (m *Maquina) QuadroAtual() (codeID string, ip int, nomesLocais []string, locais []Valor, instrucoes []bytecode.Instrucao) {
	q := m.quadros[len(m.quadros)-1]
	return q.bloco.CodeID, q.ip, q.bloco.NomesLocais, q.locais, q.bloco.Instrucoes
}

// Pilha expõe a pilha de valores do fundo ao topo, na ordem que o
// comando `p` do depurador imprime (spec §4.9).
func (m *Maquina) Pilha() []Valor {
	return m.pilha
}

func (m *Maquina) push(v Valor) { m.pilha = append(m.pilha, v) }

func (m *Maquina) pop() Valor {
	v := m.pilha[len(m.pilha)-1]
	m.pilha = m.pilha[:len(m.pilha)-1]
	return v
}

func (m *Maquina) peek(profundidade int) Valor {
	return m.pilha[len(m.pilha)-1-profundidade]
}

// classePorFQN resolve o índice de uma classe no módulo pelo FQN —
// usado por NEW e por CALL_BASE, ambos referenciando a classe por nome
// em vez de índice (resolvido em tempo de emissão, mas o módulo
// serializado só carrega FQNs em `Instrucao.Texto`, não índices, já que
// o índice de uma classe é estável só dentro de uma mesma compilação).
func (m *Maquina) classePorFQN(fqn string) (int, error) {
	idx, ok := m.modulo.ClassePorFQN(fqn)
	if !ok {
		return -1, fmt.Errorf("vm: classe não encontrada no módulo: %s", fqn)
	}
	return idx, nil
}
