package bytecode

import (
	"fmt"

	"github.com/lucasbrandao/pr/internal/parser"
	"github.com/lucasbrandao/pr/internal/resolver"
)

// ordemTopologica devolve os FQNs de classe do programa ordenados de
// forma que toda classe base apareça antes de suas derivadas — layout de
// vtable (cópia da base, sobrescrita no slot herdado) depende disso.
func ordemTopologica(prog *resolver.ProgramaResolvido) []string {
	var ordem []string
	visitado := make(map[string]bool)
	var visitar func(fqn string)
	visitar = func(fqn string) {
		if visitado[fqn] {
			return
		}
		visitado[fqn] = true
		if base, ok := prog.Heranca[fqn]; ok && base != "" {
			visitar(base)
		}
		ordem = append(ordem, fqn)
	}
	for fqn, simbolo := range prog.Simbolos {
		if simbolo.Kind == resolver.SIMBOLO_CLASSE {
			visitar(fqn)
		}
	}
	return ordem
}

func metodoChave(fqn, nome string) string { return fqn + "::" + nome }

// reservarCodeBlock acrescenta um CodeBlock vazio à tabela de métodos do
// módulo e devolve seu índice — o corpo é preenchido depois, na segunda
// passagem, o que permite que chamadas para frente (um método chamando
// outro ainda não emitido) resolvam para o índice correto já na primeira
// passagem.
func (e *Emissor) reservarCodeBlock(codeID string) int {
	e.modulo.Metodos = append(e.modulo.Metodos, CodeBlock{CodeID: codeID})
	return len(e.modulo.Metodos) - 1
}

// construirLayoutClasses monta a tabela de classes em duas passagens:
// a primeira reserva um índice de code block para cada construtor,
// método e acessor de propriedade (e com isso já resolve a vtable e as
// referências entre classes); a segunda emite os corpos nos índices
// reservados.
func (e *Emissor) construirLayoutClasses() error {
	ordem := ordemTopologica(e.prog)

	for _, fqn := range ordem {
		simbolo := e.prog.Simbolos[fqn]
		classeDecl := simbolo.Classe

		baseIndice := -1
		var vtable []SlotMetodo
		if baseFQN := e.prog.Heranca[fqn]; baseFQN != "" {
			idx := e.indiceClasse[baseFQN]
			baseIndice = idx
			vtable = append(vtable, e.modulo.Classes[idx].VTable...)
		}

		classe := Classe{
			FQN:        fqn,
			BaseIndice: baseIndice,
			IndiceCtor: -1,
			Abstrata:   classeDecl.Abstrata,
		}
		for _, campo := range classeDecl.Campos {
			slot := SlotCampo{Nome: campo.Nome, Tipo: campo.Tipo.String()}
			if campo.Estatico {
				classe.CamposEstaticos = append(classe.CamposEstaticos, slot)
			} else {
				classe.Campos = append(classe.Campos, slot)
			}
		}

		achouConstrutor := false
		for _, metodo := range classeDecl.Metodos {
			if metodo.Construtor {
				idx := e.reservarCodeBlock(fmt.Sprintf("ctor:%s", fqn))
				classe.IndiceCtor = idx
				achouConstrutor = true
				continue
			}
			if metodo.Abstrato || metodo.Corpo == nil {
				vtable = atribuirSlot(vtable, metodo.Nome, -1)
				continue
			}
			codeID := fmt.Sprintf("method:%s::%s", fqn, metodo.Nome)
			if metodo.Estatico {
				codeID = fmt.Sprintf("static:%s::%s", fqn, metodo.Nome)
			}
			idx := e.reservarCodeBlock(codeID)
			e.metodoIndice[metodoChave(fqn, metodo.Nome)] = idx
			if metodo.Redefinivel || metodo.Sobrescreve {
				vtable = atribuirSlot(vtable, metodo.Nome, idx)
			}
		}

		for _, prop := range classeDecl.Propriedades {
			if prop.AutoPropriedade {
				slot := SlotCampo{Nome: "_" + prop.Nome, Tipo: prop.Tipo.String()}
				if prop.Estatico {
					classe.CamposEstaticos = append(classe.CamposEstaticos, slot)
				} else {
					classe.Campos = append(classe.Campos, slot)
				}
			}
			if prop.TemObter {
				idx := e.reservarCodeBlock(fmt.Sprintf("method:%s::get:%s", fqn, prop.Nome))
				e.propIndice[metodoChave(fqn, "get:"+prop.Nome)] = idx
				vtable = atribuirSlot(vtable, "get:"+prop.Nome, idx)
			}
			if prop.TemDefinir {
				idx := e.reservarCodeBlock(fmt.Sprintf("method:%s::set:%s", fqn, prop.Nome))
				e.propIndice[metodoChave(fqn, "set:"+prop.Nome)] = idx
				vtable = atribuirSlot(vtable, "set:"+prop.Nome, idx)
			}
		}

		if !achouConstrutor {
			classe.IndiceCtor = e.reservarCodeBlock(fmt.Sprintf("ctor:%s", fqn))
		}

		classe.VTable = vtable
		e.modulo.Classes = append(e.modulo.Classes, classe)
		e.indiceClasse[fqn] = len(e.modulo.Classes) - 1
	}

	for _, fqn := range ordem {
		simbolo := e.prog.Simbolos[fqn]
		if err := e.emitirCorposDeClasse(fqn, simbolo.Classe); err != nil {
			return err
		}
	}
	return nil
}

// atribuirSlot sobrescreve o slot existente com a mesma chave (método
// sobrescrito), ou acrescenta um novo slot ao final da vtable.
func atribuirSlot(vt []SlotMetodo, chave string, indiceCodeBlock int) []SlotMetodo {
	for i := range vt {
		if vt[i].Chave == chave {
			vt[i].IndiceCodeBlock = indiceCodeBlock
			return vt
		}
	}
	return append(vt, SlotMetodo{Chave: chave, IndiceCodeBlock: indiceCodeBlock})
}

// vtableSlot busca o índice de slot (posição) de uma chave na vtable de
// uma classe já montada.
func (e *Emissor) vtableSlot(fqn, chave string) (int, bool) {
	idx, ok := e.indiceClasse[fqn]
	if !ok {
		return -1, false
	}
	for i, slot := range e.modulo.Classes[idx].VTable {
		if slot.Chave == chave {
			return i, true
		}
	}
	return -1, false
}

// metodoDiretoNaCadeia busca, a partir de `fqn` subindo a cadeia de
// herança, o primeiro método (virtual ou não, exceto construtores) com o
// nome dado e a classe que o declara — usado por emitirChamadaMetodo para
// localizar o alvo e decidir entre CALL_METHOD e CALL_STATIC.
func (e *Emissor) metodoDiretoNaCadeia(fqn, nome string) (*parser.Metodo, string) {
	atual := fqn
	for atual != "" {
		simbolo, ok := e.prog.Simbolos[atual]
		if !ok {
			return nil, ""
		}
		for _, m := range simbolo.Classe.Metodos {
			if m.Nome == nome && !m.Construtor {
				return m, atual
			}
		}
		atual = e.prog.Heranca[atual]
	}
	return nil, ""
}
