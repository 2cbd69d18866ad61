package bytecode

import (
	"github.com/lucasbrandao/pr/internal/parser"
	"github.com/lucasbrandao/pr/internal/resolver"
)

// emitirBloco empurra um escopo de locais e emite cada comando do bloco.
func (e *Emissor) emitirBloco(b *parser.Bloco) error {
	e.pushScope()
	defer e.popScope()
	for _, cmd := range b.Comandos {
		if err := e.emitirComando(cmd); err != nil {
			return err
		}
	}
	return nil
}

// emitirComando despacha por tipo de comando e garante que a pilha fique
// balanceada ao final de cada um — comandos de expressão descartam o
// valor produzido com POP.
func (e *Emissor) emitirComando(cmd parser.Comando) error {
	switch n := cmd.(type) {
	case *parser.Bloco:
		return e.emitirBloco(n)

	case *parser.DeclaracaoVar:
		if err := e.emitirExpr(n.Valor); err != nil {
			return err
		}
		slot := e.declararLocal(n.Nome)
		e.emit(STORE_LOCAL, int64(slot), 0, "", n.Token.Position.Line)
		return nil

	case *parser.Atribuicao:
		return e.emitirAtribuicao(n)

	case *parser.ComandoExpressao:
		produziuValor, err := e.emitirExprComando(n.Expr)
		if err != nil {
			return err
		}
		if produziuValor {
			e.emit(POP, 0, 0, "", n.Token.Position.Line)
		}
		return nil

	case *parser.ComandoImprima:
		if err := e.emitirExpr(n.Valor); err != nil {
			return err
		}
		if !e.ehTexto(n.Valor) {
			e.emit(TO_TEXT, 0, 0, "", n.Token.Position.Line)
		}
		e.emit(PRINT, 0, 0, "", n.Token.Position.Line)
		return nil

	case *parser.ComandoSe:
		return e.emitirSe(n)

	case *parser.ComandoEnquanto:
		return e.emitirEnquanto(n)

	case *parser.ComandoPara:
		return e.emitirPara(n)

	case *parser.ComandoRetorne:
		if n.Valor == nil {
			e.emit(RET_VOID, 0, 0, "", n.Token.Position.Line)
			return nil
		}
		if err := e.emitirExpr(n.Valor); err != nil {
			return err
		}
		e.emit(RET, 0, 0, "", n.Token.Position.Line)
		return nil

	default:
		return erroEmissor(cmd, "comando desconhecido")
	}
}

// emitirExprComando emite uma expressão usada como comando e informa se
// ela deixou um valor na pilha (chamadas de método/função void não
// deixam, conforme RET_VOID no code block chamado).
func (e *Emissor) emitirExprComando(expr parser.Expressao) (bool, error) {
	if err := e.emitirExpr(expr); err != nil {
		return false, err
	}
	t := e.tipoDe(expr)
	return t == nil || t.Nome != "vazio", nil
}

func (e *Emissor) emitirAtribuicao(n *parser.Atribuicao) error {
	switch alvo := n.Alvo.(type) {
	case *parser.Identificador:
		if slot, ok := e.localDe(alvo.Nome); ok {
			if err := e.emitirExpr(n.Valor); err != nil {
				return err
			}
			e.emit(STORE_LOCAL, int64(slot), 0, "", n.Token.Position.Line)
			return nil
		}
		if e.classeAtualDecl != nil {
			if campo := buscarCampoDecl(e.classeAtualDecl, alvo.Nome); campo != nil {
				if campo.Estatico {
					if err := e.emitirExpr(n.Valor); err != nil {
						return err
					}
					e.emit(STORE_STATIC, 0, 0, e.classeAtualFQN+"."+alvo.Nome, n.Token.Position.Line)
				} else {
					esteSlot, _ := e.localDe("este")
					e.emit(LOAD_LOCAL, int64(esteSlot), 0, "", n.Token.Position.Line)
					if err := e.emitirExpr(n.Valor); err != nil {
						return err
					}
					e.emit(STORE_FIELD, 0, 0, alvo.Nome, n.Token.Position.Line)
				}
				return nil
			}
			if prop := buscarPropriedadeDecl(e.classeAtualDecl, alvo.Nome); prop != nil {
				return e.emitirEscritaPropriedade(e.classeAtualFQN, e.classeAtualFQN, nil, prop, n.Valor, n.Token.Position.Line)
			}
		}
		return erroEmissor(alvo, "identificador não resolvido na emissão: "+alvo.Nome)

	case *parser.AcessoMembro:
		if id, ok := alvo.Alvo.(*parser.Identificador); ok {
			if _, ehLocal := e.localDe(id.Nome); !ehLocal {
				if simbolo, ok := e.prog.Simbolos[id.Nome]; ok && simbolo.Kind == resolver.SIMBOLO_CLASSE {
					if campo, _ := campoNaCadeia(e.prog, simbolo.FQN, alvo.Nome); campo != nil && campo.Estatico {
						if err := e.emitirExpr(n.Valor); err != nil {
							return err
						}
						e.emit(STORE_STATIC, 0, 0, simbolo.FQN+"."+alvo.Nome, n.Token.Position.Line)
						return nil
					}
					if prop, declFQN := propriedadeNaCadeia(e.prog, simbolo.FQN, alvo.Nome); prop != nil && prop.Estatico {
						return e.emitirEscritaPropriedade(simbolo.FQN, declFQN, nil, prop, n.Valor, n.Token.Position.Line)
					}
				}
			}
		}
		tAlvo := e.tipoDe(alvo.Alvo)
		if tAlvo == nil {
			return erroEmissor(alvo, "tipo do alvo não anotado: "+alvo.Nome)
		}
		if campo, _ := campoNaCadeia(e.prog, tAlvo.Nome, alvo.Nome); campo != nil {
			if err := e.emitirExpr(alvo.Alvo); err != nil {
				return err
			}
			if err := e.emitirExpr(n.Valor); err != nil {
				return err
			}
			e.emit(STORE_FIELD, 0, 0, alvo.Nome, n.Token.Position.Line)
			return nil
		}
		if prop, declFQN := propriedadeNaCadeia(e.prog, tAlvo.Nome, alvo.Nome); prop != nil {
			return e.emitirEscritaPropriedade(tAlvo.Nome, declFQN, alvo.Alvo, prop, n.Valor, n.Token.Position.Line)
		}
		return erroEmissor(alvo, "membro não encontrado na emissão: "+alvo.Nome)

	case *parser.Indexacao:
		if err := e.emitirExpr(alvo.Alvo); err != nil {
			return err
		}
		if err := e.emitirExpr(alvo.Indice); err != nil {
			return err
		}
		e.emit(CHECK_BOUNDS, 0, 0, "", n.Token.Position.Line)
		if err := e.emitirExpr(n.Valor); err != nil {
			return err
		}
		e.emit(STORE_INDEX, 0, 0, "", n.Token.Position.Line)
		return nil
	}
	return erroEmissor(n.Alvo, "alvo de atribuição não suportado")
}

// emitirEscritaPropriedade despacha para o setter de uma propriedade —
// simétrico a `emitirLeituraPropriedade`: instância vai pela vtable
// (indexada pelo tipo estático do alvo), estática chama o code block do
// setter diretamente (indexado pela classe que a declara). `alvoExpr`
// nulo indica `este` implícito.
func (e *Emissor) emitirEscritaPropriedade(classeEstaticaFQN, classeDeclarandoFQN string, alvoExpr parser.Expressao, prop *parser.Propriedade, valor parser.Expressao, linha int) error {
	if prop.Estatico {
		if err := e.emitirExpr(valor); err != nil {
			return err
		}
		idx := e.propIndice[metodoChave(classeDeclarandoFQN, "set:"+prop.Nome)]
		e.emit(CALL_STATIC, int64(idx), 1, "", linha)
		return nil
	}
	slot, ok := e.vtableSlot(classeEstaticaFQN, "set:"+prop.Nome)
	if !ok {
		return erroEmissor(valor, "propriedade sem definidor: "+prop.Nome)
	}
	if alvoExpr != nil {
		if err := e.emitirExpr(alvoExpr); err != nil {
			return err
		}
	} else {
		esteSlot, _ := e.localDe("este")
		e.emit(LOAD_LOCAL, int64(esteSlot), 0, "", linha)
	}
	if err := e.emitirExpr(valor); err != nil {
		return err
	}
	e.emit(STORE_PROP, int64(slot), 0, prop.Nome, linha)
	return nil
}

func (e *Emissor) emitirSe(n *parser.ComandoSe) error {
	if err := e.emitirExpr(n.Condicao); err != nil {
		return err
	}
	saltoFalso := e.emit(JMP_IF_FALSE, 0, 0, "", n.Token.Position.Line)
	if err := e.emitirBloco(n.BlocoSe); err != nil {
		return err
	}
	if n.BlocoSenao == nil {
		e.patchSalto(saltoFalso)
		return nil
	}
	saltoFim := e.emit(JMP, 0, 0, "", n.Token.Position.Line)
	e.patchSalto(saltoFalso)
	if err := e.emitirBloco(n.BlocoSenao); err != nil {
		return err
	}
	e.patchSalto(saltoFim)
	return nil
}

func (e *Emissor) emitirEnquanto(n *parser.ComandoEnquanto) error {
	inicio := len(e.instrucoes)
	if err := e.emitirExpr(n.Condicao); err != nil {
		return err
	}
	saltoFim := e.emit(JMP_IF_FALSE, 0, 0, "", n.Token.Position.Line)
	if err := e.emitirBloco(n.Corpo); err != nil {
		return err
	}
	e.emit(JMP, int64(inicio), 0, "", n.Token.Position.Line)
	e.patchSalto(saltoFim)
	return nil
}

func (e *Emissor) emitirPara(n *parser.ComandoPara) error {
	e.pushScope()
	defer e.popScope()

	if n.Inicializador != nil {
		if err := e.emitirComando(n.Inicializador); err != nil {
			return err
		}
	}

	inicio := len(e.instrucoes)
	var saltoFim int
	temCondicao := n.Condicao != nil
	if temCondicao {
		if err := e.emitirExpr(n.Condicao); err != nil {
			return err
		}
		saltoFim = e.emit(JMP_IF_FALSE, 0, 0, "", n.Token.Position.Line)
	}

	if err := e.emitirBloco(n.Corpo); err != nil {
		return err
	}
	if n.Passo != nil {
		if err := e.emitirComando(n.Passo); err != nil {
			return err
		}
	}
	e.emit(JMP, int64(inicio), 0, "", n.Token.Position.Line)
	if temCondicao {
		e.patchSalto(saltoFim)
	}
	return nil
}

func buscarCampoDecl(classe *parser.ClasseDecl, nome string) *parser.Campo {
	for _, campo := range classe.Campos {
		if campo.Nome == nome {
			return campo
		}
	}
	return nil
}

func buscarPropriedadeDecl(classe *parser.ClasseDecl, nome string) *parser.Propriedade {
	for _, prop := range classe.Propriedades {
		if prop.Nome == nome {
			return prop
		}
	}
	return nil
}

func (e *Emissor) ehTexto(expr parser.Expressao) bool {
	t := e.tipoDe(expr)
	return t != nil && !t.EhArray && t.Nome == "texto"
}

