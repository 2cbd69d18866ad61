package tipos

import (
	"fmt"

	"github.com/lucasbrandao/pr/internal/parser"
	"github.com/lucasbrandao/pr/internal/resolver"
	"github.com/lucasbrandao/pr/internal/utils"
)

// inferirBloco empurra um novo escopo e checa cada comando do bloco.
func (c *Checker) inferirBloco(b *parser.Bloco) error {
	c.pushScope()
	defer c.popScope()
	for _, cmd := range b.Comandos {
		if err := c.checkComando(cmd); err != nil {
			return err
		}
	}
	return nil
}

// checkComando despacha por tipo de comando, igual ao `inferirExpr` por
// tipo de expressão abaixo — tabela de casos em vez de visitor, porque o
// checador precisa de acesso à pilha de escopos a cada passo.
func (c *Checker) checkComando(cmd parser.Comando) error {
	switch n := cmd.(type) {
	case *parser.Bloco:
		return c.inferirBloco(n)

	case *parser.DeclaracaoVar:
		return c.checkDeclaracaoVar(n)

	case *parser.Atribuicao:
		return c.checkAtribuicao(n)

	case *parser.ComandoExpressao:
		_, err := c.inferirExpr(n.Expr)
		return err

	case *parser.ComandoImprima:
		_, err := c.inferirExpr(n.Valor)
		return err

	case *parser.ComandoSe:
		tCond, err := c.inferirExpr(n.Condicao)
		if err != nil {
			return err
		}
		if !mesmoTipo(tCond, BOOLEANO) {
			pos := n.Condicao.Pos()
			return utils.NovoErro("condição não booleana", pos.Line, pos.Column,
				fmt.Sprintf("condição de 'se' tem tipo %s, esperado booleano", tCond))
		}
		if err := c.inferirBloco(n.BlocoSe); err != nil {
			return err
		}
		if n.BlocoSenao != nil {
			return c.inferirBloco(n.BlocoSenao)
		}
		return nil

	case *parser.ComandoEnquanto:
		tCond, err := c.inferirExpr(n.Condicao)
		if err != nil {
			return err
		}
		if !mesmoTipo(tCond, BOOLEANO) {
			pos := n.Condicao.Pos()
			return utils.NovoErro("condição não booleana", pos.Line, pos.Column,
				fmt.Sprintf("condição de 'enquanto' tem tipo %s, esperado booleano", tCond))
		}
		return c.inferirBloco(n.Corpo)

	case *parser.ComandoPara:
		c.pushScope()
		defer c.popScope()
		if n.Inicializador != nil {
			if err := c.checkComando(n.Inicializador); err != nil {
				return err
			}
		}
		if n.Condicao != nil {
			tCond, err := c.inferirExpr(n.Condicao)
			if err != nil {
				return err
			}
			if !mesmoTipo(tCond, BOOLEANO) {
				pos := n.Condicao.Pos()
				return utils.NovoErro("condição não booleana", pos.Line, pos.Column,
					fmt.Sprintf("condição de 'para' tem tipo %s, esperado booleano", tCond))
			}
		}
		if n.Passo != nil {
			if err := c.checkComando(n.Passo); err != nil {
				return err
			}
		}
		return c.inferirBloco(n.Corpo)

	case *parser.ComandoRetorne:
		if n.Valor == nil {
			if c.retornoAtual != nil && c.retornoAtual != VAZIO {
				pos := n.Pos()
				return utils.NovoErro("retorno ausente de valor", pos.Line, pos.Column,
					fmt.Sprintf("esperado retorno de tipo %s", c.retornoAtual))
			}
			return nil
		}
		tVal, err := c.inferirExpr(n.Valor)
		if err != nil {
			return err
		}
		if c.retornoAtual == nil || !c.atribuivel(c.retornoAtual, tVal) {
			pos := n.Valor.Pos()
			return utils.NovoErro("tipo de retorno incompatível", pos.Line, pos.Column,
				fmt.Sprintf("retorna %s, esperado %s", tVal, c.retornoAtual))
		}
		return nil

	default:
		return utils.NovoErro("comando desconhecido", 0, 0, fmt.Sprintf("%T", cmd))
	}
}

func (c *Checker) checkDeclaracaoVar(n *parser.DeclaracaoVar) error {
	if n.TipoDeclarado == nil {
		tVal, err := c.inferirExpr(n.Valor)
		if err != nil {
			return err
		}
		c.declararVar(n.Nome, tVal)
		return nil
	}
	tDecl := c.resolverTipoDeclarado(n.TipoDeclarado)
	tVal, err := c.inferirExpr(n.Valor)
	if err != nil {
		return err
	}
	if !c.atribuivel(tDecl, tVal) {
		pos := n.Valor.Pos()
		return utils.NovoErro("tipo incompatível", pos.Line, pos.Column,
			fmt.Sprintf("variável '%s' declarada como %s mas inicializada com %s", n.Nome, tDecl, tVal))
	}
	c.declararVar(n.Nome, tDecl)
	return nil
}

func (c *Checker) checkAtribuicao(n *parser.Atribuicao) error {
	switch n.Alvo.(type) {
	case *parser.Identificador, *parser.AcessoMembro, *parser.Indexacao:
	default:
		pos := n.Alvo.Pos()
		return utils.NovoErro("alvo inválido", pos.Line, pos.Column, "lado esquerdo de atribuição não é atribuível")
	}
	tAlvo, err := c.inferirExpr(n.Alvo)
	if err != nil {
		return err
	}
	tVal, err := c.inferirExpr(n.Valor)
	if err != nil {
		return err
	}
	if !c.atribuivel(tAlvo, tVal) {
		pos := n.Valor.Pos()
		return utils.NovoErro("tipo incompatível", pos.Line, pos.Column,
			fmt.Sprintf("atribuindo %s a alvo do tipo %s", tVal, tAlvo))
	}
	return nil
}

// inferirExpr infere o tipo de uma expressão e registra o resultado em
// `Anotacoes` antes de devolvê-lo, para que o emissor de bytecode não
// precise refazer a inferência.
func (c *Checker) inferirExpr(expr parser.Expressao) (*Tipo, error) {
	t, err := c.inferirExprSem(expr)
	if err == nil {
		c.Anotacoes[expr] = t
	}
	return t, err
}

// inferirExprSem é o type switch central do checador, cobrindo todo o
// conjunto de nós de expressão desta linguagem (classes, propriedades,
// arrays, interpolação).
func (c *Checker) inferirExprSem(expr parser.Expressao) (*Tipo, error) {
	switch n := expr.(type) {
	case *parser.LiteralInteiro:
		return INTEIRO, nil
	case *parser.LiteralDecimal:
		return DECIMAL, nil
	case *parser.LiteralDuplo:
		return DUPLO, nil
	case *parser.LiteralTexto:
		return TEXTO, nil
	case *parser.LiteralBooleano:
		return BOOLEANO, nil

	case *parser.TextoInterpolado:
		for _, parte := range n.Partes {
			if parte.Expr != nil {
				if _, err := c.inferirExpr(parte.Expr); err != nil {
					return nil, err
				}
			}
		}
		return TEXTO, nil

	case *parser.Identificador:
		return c.resolverIdentificador(n)

	case *parser.Este:
		if c.classeAtual == nil || c.estaticoAtual {
			pos := n.Pos()
			return nil, utils.NovoErro("'este' fora de contexto", pos.Line, pos.Column,
				"'este' só pode ser usado dentro de um método ou construtor de instância")
		}
		return &Tipo{Nome: c.classeAtual.FQN}, nil

	case *parser.AcessoMembro:
		return c.inferirAcessoMembro(n)

	case *parser.ChamadaMetodo:
		return c.inferirChamadaMetodo(n)

	case *parser.ChamadaFuncao:
		return c.inferirChamadaFuncao(n)

	case *parser.NovaInstancia:
		return c.inferirNovaInstancia(n)

	case *parser.LiteralArray:
		return c.inferirLiteralArray(n)

	case *parser.Indexacao:
		return c.inferirIndexacao(n)

	case *parser.OperacaoBinaria:
		return c.inferirOperacaoBinaria(n)

	case *parser.OperacaoUnaria:
		return c.inferirOperacaoUnaria(n)

	default:
		pos := expr.Pos()
		return nil, utils.NovoErro("expressão desconhecida", pos.Line, pos.Column, fmt.Sprintf("%T", expr))
	}
}

func (c *Checker) resolverIdentificador(n *parser.Identificador) (*Tipo, error) {
	if t, ok := c.obterVarLocal(n.Nome); ok {
		return t, nil
	}
	if c.classeAtual != nil {
		if campo := buscarCampo(c.classeAtual.Classe, n.Nome); campo != nil {
			if !c.estaticoAtual || campo.Estatico {
				return c.resolverTipoDeclarado(campo.Tipo), nil
			}
		}
		if prop := buscarPropriedade(c.classeAtual.Classe, n.Nome); prop != nil {
			if !c.estaticoAtual || prop.Estatico {
				return c.resolverTipoDeclarado(prop.Tipo), nil
			}
		}
	}
	if simbolo, ok := c.simbolos[n.Nome]; ok {
		return &Tipo{Nome: simbolo.FQN}, nil
	}
	pos := n.Pos()
	return nil, utils.NovoErro("identificador não resolvido", pos.Line, pos.Column,
		fmt.Sprintf("'%s' não declarado neste escopo", n.Nome))
}

func buscarCampo(classe *parser.ClasseDecl, nome string) *parser.Campo {
	for _, campo := range classe.Campos {
		if campo.Nome == nome {
			return campo
		}
	}
	return nil
}

func buscarPropriedade(classe *parser.ClasseDecl, nome string) *parser.Propriedade {
	for _, prop := range classe.Propriedades {
		if prop.Nome == nome {
			return prop
		}
	}
	return nil
}

func buscarMetodo(classe *parser.ClasseDecl, nome string) *parser.Metodo {
	for _, m := range classe.Metodos {
		if m.Nome == nome && !m.Construtor {
			return m
		}
	}
	return nil
}

// classeDe retorna o símbolo de classe por FQN, ou nil se `nomeFQN` não
// designar uma classe (ex. um tipo primitivo ou array).
func (c *Checker) classeDe(nomeFQN string) *resolver.Simbolo {
	simbolo, ok := c.simbolos[nomeFQN]
	if !ok || simbolo.Kind != resolver.SIMBOLO_CLASSE {
		return nil
	}
	return simbolo
}

// buscarCampoNaCadeia percorre a cadeia de herança de `fqn` em busca de
// um campo com o nome dado, retornando o campo e a classe onde foi
// encontrado.
func (c *Checker) buscarCampoNaCadeia(fqn, nome string) (*parser.Campo, *resolver.Simbolo) {
	for atual := c.classeDe(fqn); atual != nil; atual = c.classeDe(c.heranca[atual.FQN]) {
		if campo := buscarCampo(atual.Classe, nome); campo != nil {
			return campo, atual
		}
	}
	return nil, nil
}

func (c *Checker) buscarPropriedadeNaCadeia(fqn, nome string) (*parser.Propriedade, *resolver.Simbolo) {
	for atual := c.classeDe(fqn); atual != nil; atual = c.classeDe(c.heranca[atual.FQN]) {
		if prop := buscarPropriedade(atual.Classe, nome); prop != nil {
			return prop, atual
		}
	}
	return nil, nil
}

func (c *Checker) buscarMetodoNaCadeia(fqn, nome string) (*parser.Metodo, *resolver.Simbolo) {
	for atual := c.classeDe(fqn); atual != nil; atual = c.classeDe(c.heranca[atual.FQN]) {
		if m := buscarMetodo(atual.Classe, nome); m != nil {
			return m, atual
		}
	}
	return nil, nil
}

func (c *Checker) inferirAcessoMembro(n *parser.AcessoMembro) (*Tipo, error) {
	// Acesso a membro estático/membro de enumeração: alvo é um Identificador
	// que nomeia uma classe ou enumeração, não uma variável.
	if id, ok := n.Alvo.(*parser.Identificador); ok {
		if _, ehVar := c.obterVarLocal(id.Nome); !ehVar {
			if simbolo, ok := c.simbolos[id.Nome]; ok {
				if simbolo.Kind == resolver.SIMBOLO_ENUMERACAO {
					for _, membro := range simbolo.Enum.Membros {
						if membro == n.Nome {
							return &Tipo{Nome: simbolo.FQN}, nil
						}
					}
					pos := n.Pos()
					return nil, utils.NovoErro("membro de enumeração inexistente", pos.Line, pos.Column,
						fmt.Sprintf("'%s' não é membro de '%s'", n.Nome, simbolo.FQN))
				}
				if simbolo.Kind == resolver.SIMBOLO_CLASSE {
					if campo, _ := c.buscarCampoNaCadeia(simbolo.FQN, n.Nome); campo != nil && campo.Estatico {
						return c.resolverTipoDeclarado(campo.Tipo), nil
					}
					if prop, _ := c.buscarPropriedadeNaCadeia(simbolo.FQN, n.Nome); prop != nil && prop.Estatico {
						return c.resolverTipoDeclarado(prop.Tipo), nil
					}
				}
			}
		}
	}

	tAlvo, err := c.inferirExpr(n.Alvo)
	if err != nil {
		return nil, err
	}
	if tAlvo.EhArray && (n.Nome == "tamanho" || n.Nome == "comprimento") {
		return INTEIRO, nil
	}
	if mesmoTipo(tAlvo, TEXTO) && (n.Nome == "tamanho" || n.Nome == "comprimento") {
		return INTEIRO, nil
	}
	if campo, _ := c.buscarCampoNaCadeia(tAlvo.Nome, n.Nome); campo != nil {
		return c.resolverTipoDeclarado(campo.Tipo), nil
	}
	if prop, _ := c.buscarPropriedadeNaCadeia(tAlvo.Nome, n.Nome); prop != nil {
		return c.resolverTipoDeclarado(prop.Tipo), nil
	}
	pos := n.Pos()
	return nil, utils.NovoErro("membro não encontrado", pos.Line, pos.Column,
		fmt.Sprintf("'%s' não tem membro '%s'", tAlvo, n.Nome))
}

func (c *Checker) inferirChamadaMetodo(n *parser.ChamadaMetodo) (*Tipo, error) {
	tAlvo, err := c.inferirExpr(n.Alvo)
	if err != nil {
		return nil, err
	}
	m, _ := c.buscarMetodoNaCadeia(tAlvo.Nome, n.Nome)
	if m == nil {
		pos := n.Pos()
		return nil, utils.NovoErro("método não encontrado", pos.Line, pos.Column,
			fmt.Sprintf("'%s' não declara método '%s'", tAlvo, n.Nome))
	}
	if err := c.checkArgumentos(m.Parametros, n.Argumentos); err != nil {
		return nil, err
	}
	return c.resolverTipoDeclarado(m.TipoRetorno), nil
}

func (c *Checker) inferirChamadaFuncao(n *parser.ChamadaFuncao) (*Tipo, error) {
	var achado *parser.FuncaoDecl
	for _, simbolo := range c.simbolos {
		if simbolo.Kind == resolver.SIMBOLO_FUNCAO && simbolo.Funcao.Nome == n.Nome {
			if achado != nil {
				pos := n.Pos()
				return nil, utils.NovoErro("referência ambígua", pos.Line, pos.Column,
					fmt.Sprintf("'%s' corresponde a mais de uma função", n.Nome))
			}
			achado = simbolo.Funcao
		}
	}
	if achado == nil {
		pos := n.Pos()
		return nil, utils.NovoErro("função não encontrada", pos.Line, pos.Column,
			fmt.Sprintf("função '%s' não declarada", n.Nome))
	}
	if err := c.checkArgumentos(achado.Parametros, n.Argumentos); err != nil {
		return nil, err
	}
	return c.resolverTipoDeclarado(achado.TipoRetorno), nil
}

func (c *Checker) inferirNovaInstancia(n *parser.NovaInstancia) (*Tipo, error) {
	simbolo, ok := c.simbolos[n.ClasseNome]
	if !ok {
		pos := n.Pos()
		return nil, utils.NovoErro("classe não encontrada", pos.Line, pos.Column,
			fmt.Sprintf("classe '%s' não declarada", n.ClasseNome))
	}
	if simbolo.Classe.Abstrata {
		pos := n.Pos()
		return nil, utils.NovoErro("instanciação de classe abstrata", pos.Line, pos.Column,
			fmt.Sprintf("classe abstrata '%s' não pode ser instanciada", n.ClasseNome))
	}
	var ctor *parser.Metodo
	for _, m := range simbolo.Classe.Metodos {
		if m.Construtor {
			ctor = m
			break
		}
	}
	if ctor != nil {
		if err := c.checkArgumentos(ctor.Parametros, n.Argumentos); err != nil {
			return nil, err
		}
	} else if len(n.Argumentos) > 0 {
		pos := n.Pos()
		return nil, utils.NovoErro("argumentos inesperados", pos.Line, pos.Column,
			fmt.Sprintf("'%s' não declara construtor mas recebeu argumentos", n.ClasseNome))
	}
	return &Tipo{Nome: simbolo.FQN}, nil
}

// checkArgumentos valida aridade (considerando parâmetros opcionais à
// direita) e compatibilidade de tipo de cada argumento.
func (c *Checker) checkArgumentos(params []parser.Parametro, args []parser.Expressao) error {
	obrigatorios := 0
	for _, p := range params {
		if p.PadraoValor == nil {
			obrigatorios++
		}
	}
	if len(args) < obrigatorios || len(args) > len(params) {
		return utils.NovoErro("aridade incorreta", 0, 0,
			fmt.Sprintf("esperado entre %d e %d argumentos, recebido %d", obrigatorios, len(params), len(args)))
	}
	for i, arg := range args {
		tArg, err := c.inferirExpr(arg)
		if err != nil {
			return err
		}
		tParam := c.resolverTipoDeclarado(params[i].Tipo)
		if !c.atribuivel(tParam, tArg) {
			pos := arg.Pos()
			return utils.NovoErro("argumento incompatível", pos.Line, pos.Column,
				fmt.Sprintf("parâmetro '%s' espera %s, recebido %s", params[i].Nome, tParam, tArg))
		}
	}
	return nil
}

func (c *Checker) inferirLiteralArray(n *parser.LiteralArray) (*Tipo, error) {
	if len(n.Elementos) == 0 {
		pos := n.Pos()
		return nil, utils.NovoErro("tipo de array vazio indeterminado", pos.Line, pos.Column,
			"um array literal vazio requer uma anotação de tipo explícita na declaração")
	}
	primeiro, err := c.inferirExpr(n.Elementos[0])
	if err != nil {
		return nil, err
	}
	comum := primeiro
	for _, elem := range n.Elementos[1:] {
		t, err := c.inferirExpr(elem)
		if err != nil {
			return nil, err
		}
		if mesmoTipo(comum, t) {
			continue
		}
		if ehInteiroOuDecimal(comum) && ehInteiroOuDecimal(t) {
			comum = DECIMAL
			continue
		}
		pos := elem.Pos()
		return nil, utils.NovoErro("elementos de array incompatíveis", pos.Line, pos.Column,
			fmt.Sprintf("elemento do tipo %s não compatível com %s", t, comum))
	}
	return Array(comum), nil
}

func (c *Checker) inferirIndexacao(n *parser.Indexacao) (*Tipo, error) {
	tAlvo, err := c.inferirExpr(n.Alvo)
	if err != nil {
		return nil, err
	}
	if !tAlvo.EhArray {
		pos := n.Alvo.Pos()
		return nil, utils.NovoErro("indexação inválida", pos.Line, pos.Column,
			fmt.Sprintf("tipo %s não é indexável", tAlvo))
	}
	tIndice, err := c.inferirExpr(n.Indice)
	if err != nil {
		return nil, err
	}
	if !mesmoTipo(tIndice, INTEIRO) {
		pos := n.Indice.Pos()
		return nil, utils.NovoErro("índice não inteiro", pos.Line, pos.Column,
			fmt.Sprintf("índice de array deve ser inteiro, recebido %s", tIndice))
	}
	return tAlvo.Elemento, nil
}

func (c *Checker) inferirOperacaoBinaria(n *parser.OperacaoBinaria) (*Tipo, error) {
	tEsq, err := c.inferirExpr(n.Esquerda)
	if err != nil {
		return nil, err
	}
	tDir, err := c.inferirExpr(n.Direita)
	if err != nil {
		return nil, err
	}
	pos := n.Pos()

	switch n.Operador {
	case parser.OP_SOMA, parser.OP_SUBTRACAO, parser.OP_MULTIPLICACAO, parser.OP_DIVISAO, parser.OP_MODULO:
		if n.Operador == parser.OP_SOMA && mesmoTipo(tEsq, TEXTO) && mesmoTipo(tDir, TEXTO) {
			return TEXTO, nil
		}
		if !ehNumerico(tEsq) || !ehNumerico(tDir) {
			return nil, utils.NovoErro("operando não numérico", pos.Line, pos.Column,
				fmt.Sprintf("operador '%s' requer operandos numéricos, recebido %s e %s", n.Operador, tEsq, tDir))
		}
		if (mesmoTipo(tEsq, DUPLO) || mesmoTipo(tDir, DUPLO)) && !mesmoTipo(tEsq, tDir) {
			return nil, utils.NovoErro("mistura de duplo", pos.Line, pos.Column,
				fmt.Sprintf("operador '%s' não combina %s com %s: duplo só combina consigo mesmo", n.Operador, tEsq, tDir))
		}
		return tipoResultanteAritmetico(tEsq, tDir), nil

	case parser.OP_IGUAL, parser.OP_DIFERENTE:
		if !mesmoTipo(tEsq, tDir) && !(ehInteiroOuDecimal(tEsq) && ehInteiroOuDecimal(tDir)) {
			return nil, utils.NovoErro("comparação incompatível", pos.Line, pos.Column,
				fmt.Sprintf("não é possível comparar %s com %s", tEsq, tDir))
		}
		return BOOLEANO, nil

	case parser.OP_MENOR, parser.OP_MENOR_IGUAL, parser.OP_MAIOR, parser.OP_MAIOR_IGUAL:
		if !ehNumerico(tEsq) || !ehNumerico(tDir) {
			return nil, utils.NovoErro("comparação não numérica", pos.Line, pos.Column,
				fmt.Sprintf("operador '%s' requer operandos numéricos, recebido %s e %s", n.Operador, tEsq, tDir))
		}
		return BOOLEANO, nil

	case parser.OP_E, parser.OP_OU:
		if !mesmoTipo(tEsq, BOOLEANO) || !mesmoTipo(tDir, BOOLEANO) {
			return nil, utils.NovoErro("operando não booleano", pos.Line, pos.Column,
				fmt.Sprintf("operador '%s' requer operandos booleanos, recebido %s e %s", n.Operador, tEsq, tDir))
		}
		return BOOLEANO, nil
	}
	return nil, utils.NovoErro("operador desconhecido", pos.Line, pos.Column, n.Operador.String())
}

// tipoResultanteAritmetico aplica a regra de alargamento inteiro<->decimal;
// `duplo` só combina consigo mesmo (checado antes desta função ser chamada).
func tipoResultanteAritmetico(a, b *Tipo) *Tipo {
	if mesmoTipo(a, DUPLO) || mesmoTipo(b, DUPLO) {
		return DUPLO
	}
	if mesmoTipo(a, DECIMAL) || mesmoTipo(b, DECIMAL) {
		return DECIMAL
	}
	return INTEIRO
}

func (c *Checker) inferirOperacaoUnaria(n *parser.OperacaoUnaria) (*Tipo, error) {
	tOperando, err := c.inferirExpr(n.Operando)
	if err != nil {
		return nil, err
	}
	pos := n.Pos()
	switch n.Operador {
	case parser.OP_NEGACAO_ARIT:
		if !ehNumerico(tOperando) {
			return nil, utils.NovoErro("negação não numérica", pos.Line, pos.Column,
				fmt.Sprintf("operador unário '-' requer operando numérico, recebido %s", tOperando))
		}
		return tOperando, nil
	case parser.OP_NEGACAO_LOGICA:
		if !mesmoTipo(tOperando, BOOLEANO) {
			return nil, utils.NovoErro("negação não booleana", pos.Line, pos.Column,
				fmt.Sprintf("operador unário '!' requer operando booleano, recebido %s", tOperando))
		}
		return BOOLEANO, nil
	}
	return nil, utils.NovoErro("operador unário desconhecido", pos.Line, pos.Column, "")
}

// hasReturnInBlock decide, de forma conservadora, se um bloco retorna em
// todos os caminhos de execução: o último comando é um retorne, ou um
// 'se' cujos dois ramos retornam. Laços nunca são considerados exaustivos
// (não há garantia estática de que o corpo execute).
func hasReturnInBlock(b *parser.Bloco) bool {
	if len(b.Comandos) == 0 {
		return false
	}
	ultimo := b.Comandos[len(b.Comandos)-1]
	switch cmd := ultimo.(type) {
	case *parser.ComandoRetorne:
		return true
	case *parser.Bloco:
		return hasReturnInBlock(cmd)
	case *parser.ComandoSe:
		return cmd.BlocoSenao != nil && hasReturnInBlock(cmd.BlocoSe) && hasReturnInBlock(cmd.BlocoSenao)
	default:
		return false
	}
}
