package tipos

import (
	"fmt"

	"github.com/lucasbrandao/pr/internal/parser"
	"github.com/lucasbrandao/pr/internal/resolver"
	"github.com/lucasbrandao/pr/internal/utils"
)

// Checker percorre o programa resolvido inferindo e checando tipos. O
// design de pilha de escopos (`escopos []map[string]*Tipo`) é
// generalizado de funções soltas para classes: além da pilha léxica,
// mantém a classe corrente (para `este` e resolução de membro) e se o
// contexto atual é estático.
type Checker struct {
	simbolos   map[string]*resolver.Simbolo
	heranca    map[string]string
	interfaces map[string][]string

	escopos      []map[string]*Tipo
	classeAtual  *resolver.Simbolo
	estaticoAtual bool
	retornoAtual *Tipo

	// Anotacoes guarda o tipo inferido de cada nó de expressão, indexado
	// por identidade do nó. O emissor de bytecode consome este mapa em vez
	// de reinferir tipos — uma única fonte de verdade entre as duas
	// passagens.
	Anotacoes map[parser.Expressao]*Tipo
}

// NovoChecker cria um checador de tipos a partir da saída do resolvedor.
func NovoChecker(prog *resolver.ProgramaResolvido) *Checker {
	return &Checker{
		simbolos:   prog.Simbolos,
		heranca:    prog.Heranca,
		interfaces: prog.Interfaces,
		Anotacoes:  make(map[parser.Expressao]*Tipo),
	}
}

// Verificar checa tipos em todas as classes/funções declaradas e nas
// instruções de nível superior do programa mesclado.
func (c *Checker) Verificar(prog *resolver.ProgramaResolvido) error {
	for _, simbolo := range c.simbolos {
		switch simbolo.Kind {
		case resolver.SIMBOLO_CLASSE:
			if err := c.verificarClasse(simbolo); err != nil {
				return err
			}
		case resolver.SIMBOLO_FUNCAO:
			if err := c.verificarFuncao(simbolo.Funcao); err != nil {
				return err
			}
		}
	}

	c.classeAtual = nil
	c.estaticoAtual = false
	c.pushScope()
	defer c.popScope()
	for _, cmd := range prog.Instrucoes {
		if err := c.checkComando(cmd); err != nil {
			return err
		}
	}
	return nil
}

// --- escopos -----------------------------------------------------------

func (c *Checker) pushScope() { c.escopos = append(c.escopos, make(map[string]*Tipo)) }
func (c *Checker) popScope()  { c.escopos = c.escopos[:len(c.escopos)-1] }

func (c *Checker) declararVar(nome string, t *Tipo) {
	c.escopos[len(c.escopos)-1][nome] = t
}

func (c *Checker) obterVarLocal(nome string) (*Tipo, bool) {
	for i := len(c.escopos) - 1; i >= 0; i-- {
		if t, ok := c.escopos[i][nome]; ok {
			return t, true
		}
	}
	return nil, false
}

// --- classes -------------------------------------------------------------

func (c *Checker) verificarClasse(s *resolver.Simbolo) error {
	classe := s.Classe
	c.classeAtual = s

	for _, campo := range classe.Campos {
		c.estaticoAtual = campo.Estatico
		if campo.Inicializador != nil {
			c.pushScope()
			tInit, err := c.inferirExpr(campo.Inicializador)
			c.popScope()
			if err != nil {
				return err
			}
			tDecl := c.resolverTipoDeclarado(campo.Tipo)
			if !c.atribuivel(tDecl, tInit) {
				pos := campo.Inicializador.Pos()
				return utils.NovoErro("tipo incompatível", pos.Line, pos.Column,
					fmt.Sprintf("campo '%s' declarado como %s mas inicializado com %s", campo.Nome, tDecl, tInit))
			}
		}
	}

	for _, prop := range classe.Propriedades {
		if err := c.verificarPropriedade(prop); err != nil {
			return err
		}
	}

	for _, metodo := range classe.Metodos {
		if err := c.verificarMetodo(s, metodo); err != nil {
			return err
		}
	}

	return nil
}

func (c *Checker) verificarPropriedade(prop *parser.Propriedade) error {
	c.estaticoAtual = prop.Estatico
	tDecl := c.resolverTipoDeclarado(prop.Tipo)

	if prop.Inicializador != nil {
		c.pushScope()
		tInit, err := c.inferirExpr(prop.Inicializador)
		c.popScope()
		if err != nil {
			return err
		}
		if !c.atribuivel(tDecl, tInit) {
			pos := prop.Inicializador.Pos()
			return utils.NovoErro("tipo incompatível", pos.Line, pos.Column,
				fmt.Sprintf("propriedade '%s' declarada como %s mas inicializada com %s", prop.Nome, tDecl, tInit))
		}
	}

	if !prop.AutoPropriedade {
		if prop.TemObter && prop.CorpoObter != nil {
			c.pushScope()
			c.retornoAtual = tDecl
			err := c.inferirBloco(prop.CorpoObter)
			c.popScope()
			if err != nil {
				return err
			}
			if !hasReturnInBlock(prop.CorpoObter) {
				pos := prop.Token.Position
				return utils.NovoErro("retorno ausente", pos.Line, pos.Column,
					fmt.Sprintf("acessor 'obter' de '%s' não retorna em todos os caminhos", prop.Nome))
			}
		}
		if prop.TemDefinir && prop.CorpoDefinir != nil {
			c.pushScope()
			c.declararVar("valor", tDecl)
			c.retornoAtual = VAZIO
			err := c.inferirBloco(prop.CorpoDefinir)
			c.popScope()
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *Checker) verificarMetodo(classe *resolver.Simbolo, m *parser.Metodo) error {
	c.estaticoAtual = m.Estatico
	if m.Abstrato || m.Corpo == nil {
		return nil
	}

	c.pushScope()
	defer c.popScope()
	for _, p := range m.Parametros {
		c.declararVar(p.Nome, c.resolverTipoDeclarado(p.Tipo))
	}

	if m.Construtor {
		c.retornoAtual = VAZIO
		if m.TemBaseCall {
			baseFQN := c.heranca[classe.FQN]
			if baseFQN == "" {
				pos := m.Token.Position
				return utils.NovoErro("base inexistente", pos.Line, pos.Column,
					fmt.Sprintf("construtor de '%s' chama 'base(...)' mas a classe não tem classe base", classe.FQN))
			}
			for _, arg := range m.BaseArgs {
				if _, err := c.inferirExpr(arg); err != nil {
					return err
				}
			}
		}
	} else {
		c.retornoAtual = c.resolverTipoDeclarado(m.TipoRetorno)
	}

	if err := c.inferirBloco(m.Corpo); err != nil {
		return err
	}

	if !m.Construtor && c.retornoAtual != nil && c.retornoAtual != VAZIO && !hasReturnInBlock(m.Corpo) {
		pos := m.Token.Position
		return utils.NovoErro("retorno ausente", pos.Line, pos.Column,
			fmt.Sprintf("método '%s' declara retorno %s mas não retorna em todos os caminhos", m.Nome, c.retornoAtual))
	}
	return nil
}

func (c *Checker) verificarFuncao(f *parser.FuncaoDecl) error {
	c.classeAtual = nil
	c.estaticoAtual = false
	c.pushScope()
	defer c.popScope()
	for _, p := range f.Parametros {
		c.declararVar(p.Nome, c.resolverTipoDeclarado(p.Tipo))
	}
	c.retornoAtual = c.resolverTipoDeclarado(f.TipoRetorno)
	if err := c.inferirBloco(f.Corpo); err != nil {
		return err
	}
	if c.retornoAtual != VAZIO && !hasReturnInBlock(f.Corpo) {
		pos := f.Token.Position
		return utils.NovoErro("retorno ausente", pos.Line, pos.Column,
			fmt.Sprintf("função '%s' declara retorno %s mas não retorna em todos os caminhos", f.Nome, c.retornoAtual))
	}
	return nil
}

// resolverTipoDeclarado converte um `*parser.Tipo` (nomes textuais, ainda
// não resolvidos) em um `*Tipo` do checador. nil (sem anotação) vira vazio.
func (c *Checker) resolverTipoDeclarado(t *parser.Tipo) *Tipo {
	if t == nil {
		return VAZIO
	}
	if t.EhArray {
		return Array(c.resolverTipoDeclarado(t.ElementTag))
	}
	return &Tipo{Nome: t.Nome}
}

// atribuivel decide se um valor de tipo `origem` pode ser atribuído a um
// alvo de tipo `alvo`: mesmo tipo, ou o único alargamento permitido
// (inteiro <-> decimal). `duplo` não se mistura implicitamente com os
// outros dois (spec §3 / Open Questions).
func (c *Checker) atribuivel(alvo, origem *Tipo) bool {
	if mesmoTipo(alvo, origem) {
		return true
	}
	if ehInteiroOuDecimal(alvo) && ehInteiroOuDecimal(origem) {
		return true
	}
	return false
}
