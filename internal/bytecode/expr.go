package bytecode

import (
	"github.com/lucasbrandao/pr/internal/parser"
	"github.com/lucasbrandao/pr/internal/resolver"
	"github.com/lucasbrandao/pr/internal/utils"
)

// emitirExpr despacha por tipo de expressão, deixando exatamente um valor
// na pilha ao final (a convenção que emitirComando/emitirBloco assumem).
func (e *Emissor) emitirExpr(expr parser.Expressao) error {
	switch n := expr.(type) {
	case *parser.LiteralInteiro:
		idx := e.modulo.adicionarConstanteInteiro(n.Valor)
		e.emit(LOAD_CONST_INT, int64(idx), 0, "", n.Token.Position.Line)
		return nil

	case *parser.LiteralDecimal:
		idx := e.modulo.adicionarConstanteDecimal(n.Escalado)
		e.emit(LOAD_CONST_DECIMAL, int64(idx), 0, "", n.Token.Position.Line)
		return nil

	case *parser.LiteralDuplo:
		idx := e.modulo.adicionarConstanteDuplo(n.Valor)
		e.emit(LOAD_CONST_DECIMAL, int64(idx), 0, "duplo", n.Token.Position.Line)
		return nil

	case *parser.LiteralTexto:
		idx := e.modulo.adicionarConstanteTexto(n.Valor)
		e.emit(LOAD_CONST_TEXT, int64(idx), 0, "", n.Token.Position.Line)
		return nil

	case *parser.LiteralBooleano:
		v := int64(0)
		if n.Valor {
			v = 1
		}
		e.emit(LOAD_BOOL, v, 0, "", n.Token.Position.Line)
		return nil

	case *parser.TextoInterpolado:
		return e.emitirTextoInterpolado(n)

	case *parser.Identificador:
		return e.emitirIdentificador(n)

	case *parser.Este:
		slot, _ := e.localDe("este")
		e.emit(LOAD_LOCAL, int64(slot), 0, "", n.Token.Position.Line)
		return nil

	case *parser.AcessoMembro:
		return e.emitirAcessoMembro(n)

	case *parser.ChamadaMetodo:
		return e.emitirChamadaMetodo(n)

	case *parser.ChamadaFuncao:
		return e.emitirChamadaFuncao(n)

	case *parser.NovaInstancia:
		return e.emitirNovaInstancia(n)

	case *parser.LiteralArray:
		return e.emitirLiteralArray(n)

	case *parser.Indexacao:
		if err := e.emitirExpr(n.Alvo); err != nil {
			return err
		}
		if err := e.emitirExpr(n.Indice); err != nil {
			return err
		}
		e.emit(CHECK_BOUNDS, 0, 0, "", n.Token.Position.Line)
		e.emit(LOAD_INDEX, 0, 0, "", n.Token.Position.Line)
		return nil

	case *parser.OperacaoBinaria:
		return e.emitirOperacaoBinaria(n)

	case *parser.OperacaoUnaria:
		return e.emitirOperacaoUnaria(n)

	default:
		return erroEmissor(expr, "expressão desconhecida na emissão")
	}
}

func (e *Emissor) emitirTextoInterpolado(n *parser.TextoInterpolado) error {
	primeira := true
	for _, parte := range n.Partes {
		if parte.Expr == nil {
			idx := e.modulo.adicionarConstanteTexto(parte.Literal)
			e.emit(LOAD_CONST_TEXT, int64(idx), 0, "", n.Token.Position.Line)
		} else {
			if err := e.emitirExpr(parte.Expr); err != nil {
				return err
			}
			if !e.ehTexto(parte.Expr) {
				e.emit(TO_TEXT, 0, 0, "", n.Token.Position.Line)
			}
		}
		if !primeira {
			e.emit(CONCAT, 0, 0, "", n.Token.Position.Line)
		}
		primeira = false
	}
	if primeira {
		idx := e.modulo.adicionarConstanteTexto("")
		e.emit(LOAD_CONST_TEXT, int64(idx), 0, "", n.Token.Position.Line)
	}
	return nil
}

func (e *Emissor) emitirIdentificador(n *parser.Identificador) error {
	if slot, ok := e.localDe(n.Nome); ok {
		e.emit(LOAD_LOCAL, int64(slot), 0, "", n.Token.Position.Line)
		return nil
	}
	if e.classeAtualDecl != nil {
		if campo := buscarCampoDecl(e.classeAtualDecl, n.Nome); campo != nil {
			if campo.Estatico {
				e.emit(LOAD_STATIC, 0, 0, e.classeAtualFQN+"."+n.Nome, n.Token.Position.Line)
			} else {
				esteSlot, _ := e.localDe("este")
				e.emit(LOAD_LOCAL, int64(esteSlot), 0, "", n.Token.Position.Line)
				e.emit(LOAD_FIELD, 0, 0, n.Nome, n.Token.Position.Line)
			}
			return nil
		}
		if prop := buscarPropriedadeDecl(e.classeAtualDecl, n.Nome); prop != nil {
			return e.emitirLeituraPropriedade(e.classeAtualFQN, e.classeAtualFQN, nil, prop, n.Token.Position.Line)
		}
	}
	return erroEmissor(n, "identificador não resolvido na emissão: "+n.Nome)
}

// emitirAcessoMembro cobre três casos: membro de enumeração, membro
// estático de classe (acessado pelo nome da classe), e membro de
// instância (campo, propriedade, ou `.tamanho`/`.comprimento` embutido).
func (e *Emissor) emitirAcessoMembro(n *parser.AcessoMembro) error {
	if id, ok := n.Alvo.(*parser.Identificador); ok {
		if _, ehLocal := e.localDe(id.Nome); !ehLocal {
			if simbolo, ok := e.prog.Simbolos[id.Nome]; ok {
				if simbolo.Kind == resolver.SIMBOLO_ENUMERACAO {
					for i, membro := range simbolo.Enum.Membros {
						if membro == n.Nome {
							idx := e.modulo.adicionarConstanteInteiro(int64(i))
							e.emit(LOAD_CONST_INT, int64(idx), 0, "", n.Token.Position.Line)
							return nil
						}
					}
					return erroEmissor(n, "membro de enumeração inexistente: "+n.Nome)
				}
				if simbolo.Kind == resolver.SIMBOLO_CLASSE {
					if campo, declFQN := campoNaCadeia(e.prog, simbolo.FQN, n.Nome); campo != nil && campo.Estatico {
						_ = declFQN
						e.emit(LOAD_STATIC, 0, 0, simbolo.FQN+"."+n.Nome, n.Token.Position.Line)
						return nil
					}
					if prop, declFQN := propriedadeNaCadeia(e.prog, simbolo.FQN, n.Nome); prop != nil && prop.Estatico {
						idx := e.propIndice[metodoChave(declFQN, "get:"+n.Nome)]
						e.emit(CALL_STATIC, int64(idx), 0, "", n.Token.Position.Line)
						return nil
					}
				}
			}
		}
	}

	tAlvo := e.tipoDe(n.Alvo)
	if tAlvo == nil {
		return erroEmissor(n, "tipo do alvo não anotado: "+n.Nome)
	}
	if (n.Nome == "tamanho" || n.Nome == "comprimento") && (tAlvo.EhArray || tAlvo.Nome == "texto") {
		if err := e.emitirExpr(n.Alvo); err != nil {
			return err
		}
		e.emit(ARRAY_LEN, 0, 0, "", n.Token.Position.Line)
		return nil
	}
	if campo, _ := campoNaCadeia(e.prog, tAlvo.Nome, n.Nome); campo != nil {
		if err := e.emitirExpr(n.Alvo); err != nil {
			return err
		}
		e.emit(LOAD_FIELD, 0, 0, n.Nome, n.Token.Position.Line)
		return nil
	}
	if prop, declFQN := propriedadeNaCadeia(e.prog, tAlvo.Nome, n.Nome); prop != nil {
		return e.emitirLeituraPropriedade(tAlvo.Nome, declFQN, n.Alvo, prop, n.Token.Position.Line)
	}
	return erroEmissor(n, "membro não encontrado na emissão: "+n.Nome)
}

// emitirLeituraPropriedade despacha para o getter de uma propriedade. Para
// propriedades de instância, o getter ocupa um slot de vtable (permitindo
// sobrescrita, indexado pelo tipo estático do alvo — estável ao longo da
// cadeia de herança); propriedades estáticas não têm polimorfismo
// possível e chamam o code block do getter diretamente, indexado pela
// classe que de fato a declara.
func (e *Emissor) emitirLeituraPropriedade(classeEstaticaFQN, classeDeclarandoFQN string, alvoExpr parser.Expressao, prop *parser.Propriedade, linha int) error {
	if prop.Estatico {
		idx := e.propIndice[metodoChave(classeDeclarandoFQN, "get:"+prop.Nome)]
		e.emit(CALL_STATIC, int64(idx), 0, "", linha)
		return nil
	}
	slot, ok := e.vtableSlot(classeEstaticaFQN, "get:"+prop.Nome)
	if !ok {
		p := prop.Token.Position
		return utils.NovoErro("erro de emissão", p.Line, p.Column, "propriedade sem obtentor: "+prop.Nome)
	}
	if alvoExpr != nil {
		if err := e.emitirExpr(alvoExpr); err != nil {
			return err
		}
	} else {
		esteSlot, _ := e.localDe("este")
		e.emit(LOAD_LOCAL, int64(esteSlot), 0, "", linha)
	}
	e.emit(LOAD_PROP, int64(slot), 0, prop.Nome, linha)
	return nil
}

func (e *Emissor) emitirChamadaMetodo(n *parser.ChamadaMetodo) error {
	if id, ok := n.Alvo.(*parser.Identificador); ok {
		if _, ehLocal := e.localDe(id.Nome); !ehLocal {
			if simbolo, ok := e.prog.Simbolos[id.Nome]; ok && simbolo.Kind == resolver.SIMBOLO_CLASSE {
				m, declFQN := e.metodoDiretoNaCadeia(simbolo.FQN, n.Nome)
				if m == nil {
					return erroEmissor(n, "método estático não encontrado na emissão: "+n.Nome)
				}
				for _, arg := range n.Argumentos {
					if err := e.emitirExpr(arg); err != nil {
						return err
					}
				}
				idx := e.metodoIndice[metodoChave(declFQN, n.Nome)]
				e.emit(CALL_STATIC, int64(idx), int64(len(n.Argumentos)), "", n.Token.Position.Line)
				return nil
			}
		}
	}

	tAlvo := e.tipoDe(n.Alvo)
	if tAlvo == nil {
		return erroEmissor(n, "tipo do alvo não anotado: "+n.Nome)
	}
	m, declFQN := e.metodoDiretoNaCadeia(tAlvo.Nome, n.Nome)
	if m == nil {
		return erroEmissor(n, "método não encontrado na emissão: "+n.Nome)
	}
	if err := e.emitirExpr(n.Alvo); err != nil {
		return err
	}
	for _, arg := range n.Argumentos {
		if err := e.emitirExpr(arg); err != nil {
			return err
		}
	}
	if m.Redefinivel || m.Sobrescreve {
		slot, ok := e.vtableSlot(tAlvo.Nome, n.Nome)
		if !ok {
			return erroEmissor(n, "método virtual sem slot de vtable: "+n.Nome)
		}
		e.emit(CALL_METHOD, int64(slot), int64(len(n.Argumentos)), "", n.Token.Position.Line)
		return nil
	}
	idx := e.metodoIndice[metodoChave(declFQN, n.Nome)]
	e.emit(CALL_STATIC, int64(idx), int64(len(n.Argumentos)), "", n.Token.Position.Line)
	return nil
}

func (e *Emissor) emitirChamadaFuncao(n *parser.ChamadaFuncao) error {
	idx, ok := e.indiceFuncoes[n.Nome]
	if !ok {
		return erroEmissor(n, "função não encontrada na emissão: "+n.Nome)
	}
	for _, arg := range n.Argumentos {
		if err := e.emitirExpr(arg); err != nil {
			return err
		}
	}
	e.emit(CALL_FUNC, int64(idx), int64(len(n.Argumentos)), "", n.Token.Position.Line)
	return nil
}

// emitirNovaInstancia empilha os argumentos e emite NEW: o operando A é a
// contagem de argumentos, Texto o FQN da classe. O VM aloca a instância e
// executa seu construtor (base-call, inicializadores de campo, corpo)
// antes de empilhar a referência resultante.
func (e *Emissor) emitirNovaInstancia(n *parser.NovaInstancia) error {
	simbolo, ok := e.prog.Simbolos[n.ClasseNome]
	if !ok {
		return erroEmissor(n, "classe não encontrada na emissão: "+n.ClasseNome)
	}
	for _, arg := range n.Argumentos {
		if err := e.emitirExpr(arg); err != nil {
			return err
		}
	}
	e.emit(NEW, int64(len(n.Argumentos)), 0, simbolo.FQN, n.Token.Position.Line)
	return nil
}

func (e *Emissor) emitirLiteralArray(n *parser.LiteralArray) error {
	for _, elem := range n.Elementos {
		if err := e.emitirExpr(elem); err != nil {
			return err
		}
	}
	tipoElem := ""
	if t := e.tipoDe(n); t != nil && t.EhArray {
		tipoElem = t.Elemento.String()
	}
	e.emit(NEW_ARRAY, int64(len(n.Elementos)), 0, tipoElem, n.Token.Position.Line)
	return nil
}

func (e *Emissor) emitirOperacaoBinaria(n *parser.OperacaoBinaria) error {
	if n.Operador == parser.OP_E || n.Operador == parser.OP_OU {
		return e.emitirLogicaCurtoCircuito(n)
	}

	if err := e.emitirExpr(n.Esquerda); err != nil {
		return err
	}
	if err := e.emitirExpr(n.Direita); err != nil {
		return err
	}
	linha := n.Token.Position.Line

	switch n.Operador {
	case parser.OP_SOMA:
		if e.ehTexto(n.Esquerda) && e.ehTexto(n.Direita) {
			e.emit(CONCAT, 0, 0, "", linha)
			return nil
		}
		e.emit(e.opAritmetico(ADD_I, ADD_D, n), 0, 0, "", linha)
		return nil
	case parser.OP_SUBTRACAO:
		e.emit(e.opAritmetico(SUB_I, SUB_D, n), 0, 0, "", linha)
		return nil
	case parser.OP_MULTIPLICACAO:
		e.emit(e.opAritmetico(MUL_I, MUL_D, n), 0, 0, "", linha)
		return nil
	case parser.OP_DIVISAO:
		e.emit(e.opAritmetico(DIV_I, DIV_D, n), 0, 0, "", linha)
		return nil
	case parser.OP_MODULO:
		e.emit(e.opAritmetico(MOD_I, MOD_D, n), 0, 0, "", linha)
		return nil
	case parser.OP_IGUAL:
		e.emit(EQ, 0, 0, "", linha)
		return nil
	case parser.OP_DIFERENTE:
		e.emit(NE, 0, 0, "", linha)
		return nil
	case parser.OP_MENOR:
		e.emit(LT, 0, 0, "", linha)
		return nil
	case parser.OP_MENOR_IGUAL:
		e.emit(LE, 0, 0, "", linha)
		return nil
	case parser.OP_MAIOR:
		e.emit(GT, 0, 0, "", linha)
		return nil
	case parser.OP_MAIOR_IGUAL:
		e.emit(GE, 0, 0, "", linha)
		return nil
	}
	return erroEmissor(n, "operador binário desconhecido na emissão")
}

// opAritmetico escolhe entre a variante _I e _D com base no tipo
// resultante anotado pelo checador. `decimal` reaproveita a variante _I:
// soma/subtração/módulo são invariantes de escala para um ponto fixo de
// mesma escala, e multiplicação/divisão recebem a correção de escala em
// tempo de execução a partir da marca de tipo do valor, não do opcode.
func (e *Emissor) opAritmetico(opI, opD OpCode, n *parser.OperacaoBinaria) OpCode {
	t := e.tipoDe(n)
	if t != nil && t.Nome == "duplo" {
		return opD
	}
	return opI
}

// emitirLogicaCurtoCircuito lowera `&&`/`||` para saltos em vez de
// instruções AND/OR dedicadas.
func (e *Emissor) emitirLogicaCurtoCircuito(n *parser.OperacaoBinaria) error {
	if err := e.emitirExpr(n.Esquerda); err != nil {
		return err
	}
	linha := n.Token.Position.Line
	if n.Operador == parser.OP_E {
		saltoCurto := e.emit(JMP_IF_FALSE, 0, 0, "", linha)
		if err := e.emitirExpr(n.Direita); err != nil {
			return err
		}
		saltoFim := e.emit(JMP, 0, 0, "", linha)
		e.patchSalto(saltoCurto)
		e.emit(LOAD_BOOL, 0, 0, "", linha)
		e.patchSalto(saltoFim)
		return nil
	}
	saltoCurto := e.emit(JMP_IF_TRUE, 0, 0, "", linha)
	if err := e.emitirExpr(n.Direita); err != nil {
		return err
	}
	saltoFim := e.emit(JMP, 0, 0, "", linha)
	e.patchSalto(saltoCurto)
	e.emit(LOAD_BOOL, 1, 0, "", linha)
	e.patchSalto(saltoFim)
	return nil
}

func (e *Emissor) emitirOperacaoUnaria(n *parser.OperacaoUnaria) error {
	if err := e.emitirExpr(n.Operando); err != nil {
		return err
	}
	linha := n.Token.Position.Line
	switch n.Operador {
	case parser.OP_NEGACAO_ARIT:
		e.emit(NEG, 0, 0, "", linha)
	case parser.OP_NEGACAO_LOGICA:
		e.emit(NOT, 0, 0, "", linha)
	}
	return nil
}

// campoNaCadeia/propriedadeNaCadeia replicam a busca na cadeia de herança
// feita pelo checador de tipos (`tipos.Checker.buscarCampoNaCadeia`), mas
// operam diretamente sobre o programa resolvido, já que o emissor não tem
// acesso aos métodos privados do checador.
func campoNaCadeia(prog *resolver.ProgramaResolvido, fqn, nome string) (*parser.Campo, string) {
	for atual := fqn; atual != ""; atual = prog.Heranca[atual] {
		simbolo, ok := prog.Simbolos[atual]
		if !ok || simbolo.Kind != resolver.SIMBOLO_CLASSE {
			return nil, ""
		}
		for _, campo := range simbolo.Classe.Campos {
			if campo.Nome == nome {
				return campo, atual
			}
		}
	}
	return nil, ""
}

func propriedadeNaCadeia(prog *resolver.ProgramaResolvido, fqn, nome string) (*parser.Propriedade, string) {
	for atual := fqn; atual != ""; atual = prog.Heranca[atual] {
		simbolo, ok := prog.Simbolos[atual]
		if !ok || simbolo.Kind != resolver.SIMBOLO_CLASSE {
			return nil, ""
		}
		for _, prop := range simbolo.Classe.Propriedades {
			if prop.Nome == nome {
				return prop, atual
			}
		}
	}
	return nil, ""
}
