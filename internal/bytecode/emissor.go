package bytecode

import (
	"fmt"

	"github.com/lucasbrandao/pr/internal/lexer"
	"github.com/lucasbrandao/pr/internal/parser"
	"github.com/lucasbrandao/pr/internal/resolver"
	"github.com/lucasbrandao/pr/internal/tipos"
	"github.com/lucasbrandao/pr/internal/utils"
)

// Emissor gera um Modulo a partir do programa resolvido e tipado:
// `emit` com patch de saltos por sobrescrita de operando após a geração
// do corpo, generalizado de uma lista achatada de instruções para um
// módulo inteiro com tabela de classes e tabela de métodos. A emissão
// ocorre em duas passagens: a primeira (`construirLayoutClasses`)
// reserva um índice de code block para cada construtor/método/acessor/
// função antes de gerar qualquer corpo, para que chamadas adiantadas
// (um método chamando outro declarado mais abaixo no arquivo) resolvam
// sem um passe de resolução separado.
type Emissor struct {
	prog      *resolver.ProgramaResolvido
	anotacoes map[parser.Expressao]*tipos.Tipo
	modulo    *Modulo

	indiceClasse  map[string]int // FQN -> índice em modulo.Classes
	metodoIndice  map[string]int // "FQN::nome" -> índice em modulo.Metodos
	propIndice    map[string]int // "FQN::get:nome" | "FQN::set:nome" -> índice
	indiceFuncoes map[string]int // nome de função livre -> índice em modulo.Metodos

	// Estado da emissão do code block corrente.
	instrucoes  []Instrucao
	escopos     []map[string]int // nome -> slot local
	numLocais   int
	nomesLocais []string // slot -> nome, paralelo a numLocais

	classeAtualFQN  string
	classeAtualDecl *parser.ClasseDecl
	estaticoAtual   bool
}

// NovoEmissor cria um emissor a partir do programa resolvido e das
// anotações de tipo produzidas pelo checador (`tipos.Checker.Anotacoes`).
func NovoEmissor(prog *resolver.ProgramaResolvido, anotacoes map[parser.Expressao]*tipos.Tipo) *Emissor {
	return &Emissor{
		prog:          prog,
		anotacoes:     anotacoes,
		modulo:        NovoModulo(),
		indiceClasse:  make(map[string]int),
		metodoIndice:  make(map[string]int),
		propIndice:    make(map[string]int),
		indiceFuncoes: make(map[string]int),
	}
}

// Emitir gera o módulo completo: tabela de classes (com métodos e
// acessores), funções livres, e o ponto de entrada sintetizado a partir
// das instruções de nível superior.
func (e *Emissor) Emitir() (*Modulo, error) {
	for _, simbolo := range e.prog.Simbolos {
		if simbolo.Kind == resolver.SIMBOLO_FUNCAO {
			idx := e.reservarCodeBlock("func:" + simbolo.Funcao.Nome)
			e.indiceFuncoes[simbolo.Funcao.Nome] = idx
		}
	}

	if err := e.construirLayoutClasses(); err != nil {
		return nil, err
	}

	for _, simbolo := range e.prog.Simbolos {
		if simbolo.Kind == resolver.SIMBOLO_FUNCAO {
			if err := e.emitirCorpoDeFuncao(simbolo.Funcao); err != nil {
				return nil, err
			}
		}
	}

	e.classeAtualDecl = nil
	e.estaticoAtual = false
	init, err := e.emitirCodeBlock("global:init", nil, e.emitirInicializadoresEstaticos)
	if err != nil {
		return nil, err
	}
	e.modulo.InitEstatico = init

	ponto, err := e.emitirCodeBlock("global", nil, func() error {
		for _, cmd := range e.prog.Instrucoes {
			if err := e.emitirComando(cmd); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.modulo.PontoEntrada = ponto
	return e.modulo, nil
}

// emitirInicializadoresEstaticos emite `Classe.Campo = inicializador` para
// cada campo estático com inicializador, em ordem topológica de classes
// (base antes de derivada) — compõe o code block "global:init", que o VM
// executa uma vez antes de PontoEntrada.
func (e *Emissor) emitirInicializadoresEstaticos() error {
	for _, fqn := range ordemTopologica(e.prog) {
		simbolo := e.prog.Simbolos[fqn]
		e.classeAtualFQN = fqn
		e.classeAtualDecl = simbolo.Classe
		e.estaticoAtual = true
		for _, campo := range simbolo.Classe.Campos {
			if !campo.Estatico || campo.Inicializador == nil {
				continue
			}
			if err := e.emitirExpr(campo.Inicializador); err != nil {
				return err
			}
			e.emit(STORE_STATIC, 0, 0, fqn+"."+campo.Nome, campo.Token.Position.Line)
		}
	}
	e.classeAtualFQN = ""
	e.classeAtualDecl = nil
	e.estaticoAtual = false
	return nil
}

// emitirCodeBlock empurra um escopo de locais fresco, executa `corpo`
// (que emite instruções via e.emit), e devolve o CodeBlock resultante.
// Quando o bloco pertence a um contexto de instância (método, construtor
// ou acessor não-estático), `este` ocupa o slot local 0, antes dos
// parâmetros declarados.
func (e *Emissor) emitirCodeBlock(codeID string, parametros []parser.Parametro, corpo func() error) (CodeBlock, error) {
	instrucoesAnteriores := e.instrucoes
	escoposAnteriores := e.escopos
	locaisAnteriores := e.numLocais
	nomesAnteriores := e.nomesLocais

	e.instrucoes = nil
	e.escopos = []map[string]int{make(map[string]int)}
	e.numLocais = 0
	e.nomesLocais = nil

	temEste := e.classeAtualDecl != nil && !e.estaticoAtual
	if temEste {
		e.declararLocal("este")
	}
	for _, p := range parametros {
		e.declararLocal(p.Nome)
	}

	err := corpo()

	bloco := CodeBlock{
		CodeID:      codeID,
		Instrucoes:  e.instrucoes,
		NumLocais:   e.numLocais,
		NumParam:    len(parametros),
		TemEste:     temEste,
		NomesLocais: e.nomesLocais,
	}

	e.instrucoes = instrucoesAnteriores
	e.escopos = escoposAnteriores
	e.numLocais = locaisAnteriores
	e.nomesLocais = nomesAnteriores

	return bloco, err
}

// emitirCorposDeClasse preenche, na segunda passagem, os code blocks já
// reservados para o construtor, os métodos e os acessores de `classeDecl`.
func (e *Emissor) emitirCorposDeClasse(fqn string, classeDecl *parser.ClasseDecl) error {
	e.classeAtualFQN = fqn
	e.classeAtualDecl = classeDecl
	classeIdx := e.indiceClasse[fqn]

	achouConstrutor := false
	for _, metodo := range classeDecl.Metodos {
		if metodo.Construtor {
			achouConstrutor = true
			if err := e.preencherCorpoConstrutor(fqn, metodo, e.modulo.Classes[classeIdx].IndiceCtor); err != nil {
				return err
			}
			continue
		}
		if metodo.Abstrato || metodo.Corpo == nil {
			continue
		}
		idx := e.metodoIndice[metodoChave(fqn, metodo.Nome)]
		if err := e.preencherCorpoMetodo(metodo, idx); err != nil {
			return err
		}
	}
	if !achouConstrutor {
		if err := e.preencherConstrutorPadrao(fqn, e.modulo.Classes[classeIdx].IndiceCtor); err != nil {
			return err
		}
	}

	for _, prop := range classeDecl.Propriedades {
		if prop.TemObter {
			idx := e.propIndice[metodoChave(fqn, "get:"+prop.Nome)]
			if err := e.preencherAcessor(prop, true, idx); err != nil {
				return err
			}
		}
		if prop.TemDefinir {
			idx := e.propIndice[metodoChave(fqn, "set:"+prop.Nome)]
			if err := e.preencherAcessor(prop, false, idx); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *Emissor) preencherCorpoConstrutor(fqn string, m *parser.Metodo, idx int) error {
	e.estaticoAtual = false
	bloco, err := e.emitirCodeBlock(e.modulo.Metodos[idx].CodeID, m.Parametros, func() error {
		if m.TemBaseCall {
			baseFQN := e.prog.Heranca[fqn]
			for _, arg := range m.BaseArgs {
				if err := e.emitirExpr(arg); err != nil {
					return err
				}
			}
			e.emit(CALL_BASE, int64(len(m.BaseArgs)), 0, baseFQN, m.Token.Position.Line)
		}
		if err := e.emitirInicializadoresDeCampo(); err != nil {
			return err
		}
		if err := e.emitirBloco(m.Corpo); err != nil {
			return err
		}
		e.emit(RET_VOID, 0, 0, "", m.Token.Position.Line)
		return nil
	})
	if err != nil {
		return err
	}
	e.modulo.Metodos[idx] = bloco
	return nil
}

// preencherConstrutorPadrao preenche o construtor sintetizado para uma
// classe sem construtor declarado: chama a base sem argumentos (se
// houver) e roda os inicializadores de campo, igual a como um
// construtor implícito monta o objeto em qualquer linguagem de classes
// com construtor opcional.
func (e *Emissor) preencherConstrutorPadrao(fqn string, idx int) error {
	e.estaticoAtual = false
	bloco, err := e.emitirCodeBlock(e.modulo.Metodos[idx].CodeID, nil, func() error {
		if baseFQN := e.prog.Heranca[fqn]; baseFQN != "" {
			e.emit(CALL_BASE, 0, 0, baseFQN, 0)
		}
		if err := e.emitirInicializadoresDeCampo(); err != nil {
			return err
		}
		e.emit(RET_VOID, 0, 0, "", 0)
		return nil
	})
	if err != nil {
		return err
	}
	e.modulo.Metodos[idx] = bloco
	return nil
}

func (e *Emissor) preencherCorpoMetodo(m *parser.Metodo, idx int) error {
	e.estaticoAtual = m.Estatico
	bloco, err := e.emitirCodeBlock(e.modulo.Metodos[idx].CodeID, m.Parametros, func() error {
		if err := e.emitirBloco(m.Corpo); err != nil {
			return err
		}
		e.emit(RET_VOID, 0, 0, "", m.Token.Position.Line)
		return nil
	})
	if err != nil {
		return err
	}
	e.modulo.Metodos[idx] = bloco
	return nil
}

// emitirInicializadoresDeCampo emite `este.Campo = inicializador` para
// cada campo de instância com inicializador, na ordem declarada — só
// chamado dentro do construtor, após o `base(...)` e antes do corpo
// escrito pelo usuário, igual a como o construtor de uma classe monta
// o objeto antes de executar seu próprio corpo.
func (e *Emissor) emitirInicializadoresDeCampo() error {
	esteSlot, _ := e.localDe("este")
	for _, campo := range e.classeAtualDecl.Campos {
		if campo.Estatico || campo.Inicializador == nil {
			continue
		}
		e.emit(LOAD_LOCAL, int64(esteSlot), 0, "", campo.Token.Position.Line)
		if err := e.emitirExpr(campo.Inicializador); err != nil {
			return err
		}
		e.emit(STORE_FIELD, 0, 0, campo.Nome, campo.Token.Position.Line)
	}
	return nil
}

func (e *Emissor) preencherAcessor(prop *parser.Propriedade, obter bool, idx int) error {
	e.estaticoAtual = prop.Estatico
	codeID := e.modulo.Metodos[idx].CodeID

	if prop.AutoPropriedade {
		var params []parser.Parametro
		if !obter {
			params = []parser.Parametro{{Nome: "valor", Tipo: prop.Tipo}}
		}
		bloco, err := e.emitirCodeBlock(codeID, params, func() error {
			linha := prop.Token.Position.Line
			if prop.Estatico {
				chave := e.classeAtualFQN + "._" + prop.Nome
				if obter {
					e.emit(LOAD_STATIC, 0, 0, chave, linha)
					e.emit(RET, 0, 0, "", linha)
				} else {
					e.emit(LOAD_LOCAL, 0, 0, "", linha)
					e.emit(STORE_STATIC, 0, 0, chave, linha)
					e.emit(RET_VOID, 0, 0, "", linha)
				}
				return nil
			}
			e.emit(LOAD_LOCAL, 0, 0, "", linha) // este
			if obter {
				e.emit(LOAD_FIELD, 0, 0, "_"+prop.Nome, linha)
				e.emit(RET, 0, 0, "", linha)
			} else {
				e.emit(LOAD_LOCAL, 1, 0, "", linha) // valor
				e.emit(STORE_FIELD, 0, 0, "_"+prop.Nome, linha)
				e.emit(RET_VOID, 0, 0, "", linha)
			}
			return nil
		})
		if err != nil {
			return err
		}
		e.modulo.Metodos[idx] = bloco
		return nil
	}

	corpo := prop.CorpoObter
	var params []parser.Parametro
	if !obter {
		corpo = prop.CorpoDefinir
		params = []parser.Parametro{{Nome: "valor", Tipo: prop.Tipo}}
	}
	bloco, err := e.emitirCodeBlock(codeID, params, func() error {
		if err := e.emitirBloco(corpo); err != nil {
			return err
		}
		e.emit(RET_VOID, 0, 0, "", prop.Token.Position.Line)
		return nil
	})
	if err != nil {
		return err
	}
	e.modulo.Metodos[idx] = bloco
	return nil
}

func (e *Emissor) emitirCorpoDeFuncao(f *parser.FuncaoDecl) error {
	e.classeAtualFQN = ""
	e.classeAtualDecl = nil
	e.estaticoAtual = false
	idx := e.indiceFuncoes[f.Nome]
	bloco, err := e.emitirCodeBlock(fmt.Sprintf("func:%s", f.Nome), f.Parametros, func() error {
		if err := e.emitirBloco(f.Corpo); err != nil {
			return err
		}
		e.emit(RET_VOID, 0, 0, "", f.Token.Position.Line)
		return nil
	})
	if err != nil {
		return err
	}
	e.modulo.Metodos[idx] = bloco
	return nil
}

// --- escopos de locais ---------------------------------------------------

func (e *Emissor) pushScope() { e.escopos = append(e.escopos, make(map[string]int)) }
func (e *Emissor) popScope()  { e.escopos = e.escopos[:len(e.escopos)-1] }

func (e *Emissor) declararLocal(nome string) int {
	slot := e.numLocais
	e.numLocais++
	e.nomesLocais = append(e.nomesLocais, nome)
	e.escopos[len(e.escopos)-1][nome] = slot
	return slot
}

func (e *Emissor) localDe(nome string) (int, bool) {
	for i := len(e.escopos) - 1; i >= 0; i-- {
		if slot, ok := e.escopos[i][nome]; ok {
			return slot, true
		}
	}
	return -1, false
}

// --- emissão de instruções ------------------------------------------------

func (e *Emissor) emit(op OpCode, a, b int64, texto string, linha int) int {
	e.instrucoes = append(e.instrucoes, Instrucao{Op: op, OperandoA: a, OperandoB: b, Texto: texto, Linha: linha})
	return len(e.instrucoes) - 1
}

func (e *Emissor) patchSalto(indiceInstrucao int) {
	e.instrucoes[indiceInstrucao].OperandoA = int64(len(e.instrucoes))
}

func (e *Emissor) tipoDe(expr parser.Expressao) *tipos.Tipo {
	if t, ok := e.anotacoes[expr]; ok {
		return t
	}
	return nil
}

// posicionavel é satisfeita tanto por parser.Expressao quanto por
// parser.Comando — ambas expõem Pos(), o suficiente para relatar erros
// de emissão com localização.
type posicionavel interface {
	Pos() lexer.Position
}

func erroEmissor(pos posicionavel, msg string) error {
	p := pos.Pos()
	return utils.NovoErro("erro de emissão", p.Line, p.Column, msg)
}
