package vm

import (
	"fmt"
	"unicode/utf8"

	"github.com/lucasbrandao/pr/internal/bytecode"
)

// executarInstrucao roda uma única instrução do quadro corrente e avança
// seu IP (saltos escrevem o próprio IP; as demais instruções andam uma
// posição). `feito` vem true só em RET/RET_VOID, sinalizando a
// `rodarBloco` que o quadro terminou e que `valor`/`temValor` é o
// resultado a devolver ao chamador.
func (m *Maquina) executarInstrucao(q *quadro, instr bytecode.Instrucao) (valor Valor, temValor bool, feito bool, err error) {
	codeID := q.bloco.CodeID
	linha := instr.Linha
	proximoIP := q.ip + 1

	switch instr.Op {
	case bytecode.LOAD_CONST_INT:
		c := m.modulo.Constantes[instr.OperandoA]
		m.push(ValorInteiro(c.Inteiro))

	case bytecode.LOAD_CONST_DECIMAL:
		c := m.modulo.Constantes[instr.OperandoA]
		if c.Tipo == bytecode.CONST_DUPLO {
			m.push(ValorDuplo(c.Duplo))
		} else {
			m.push(ValorDecimal(c.Inteiro))
		}

	case bytecode.LOAD_CONST_TEXT:
		c := m.modulo.Constantes[instr.OperandoA]
		m.push(ValorTexto(c.Texto))

	case bytecode.LOAD_BOOL:
		m.push(ValorBooleano(instr.OperandoA != 0))

	case bytecode.LOAD_NULL:
		m.push(ValorNulo)

	case bytecode.LOAD_LOCAL:
		m.push(q.locais[instr.OperandoA])

	case bytecode.STORE_LOCAL:
		q.locais[instr.OperandoA] = m.pop()

	case bytecode.LOAD_STATIC:
		v, ok := m.estaticos[instr.Texto]
		if !ok {
			return ValorNulo, false, false, erroExecucao(codeID, q.ip, linha, "estático não encontrado: %s", instr.Texto)
		}
		m.push(v)

	case bytecode.STORE_STATIC:
		m.estaticos[instr.Texto] = m.pop()

	case bytecode.NEW:
		argc := int(instr.OperandoA)
		args := m.coletarArgs(argc)
		classIdx, errFQN := m.classePorFQN(instr.Texto)
		if errFQN != nil {
			return ValorNulo, false, false, errFQN
		}
		obj, errNew := m.alocarEConstruir(classIdx, args)
		if errNew != nil {
			return ValorNulo, false, false, errNew
		}
		m.push(ValorObjeto(obj))

	case bytecode.LOAD_FIELD:
		alvo := m.pop()
		obj, errAlvo := m.exigirObjeto(codeID, q.ip, linha, alvo)
		if errAlvo != nil {
			return ValorNulo, false, false, errAlvo
		}
		m.push(obj.Campos[instr.Texto])

	case bytecode.STORE_FIELD:
		v := m.pop()
		alvo := m.pop()
		obj, errAlvo := m.exigirObjeto(codeID, q.ip, linha, alvo)
		if errAlvo != nil {
			return ValorNulo, false, false, errAlvo
		}
		obj.Campos[instr.Texto] = v

	case bytecode.LOAD_PROP:
		alvo := m.pop()
		obj, errAlvo := m.exigirObjeto(codeID, q.ip, linha, alvo)
		if errAlvo != nil {
			return ValorNulo, false, false, errAlvo
		}
		idx, errSlot := m.resolverSlotVirtual(codeID, q.ip, linha, obj, int(instr.OperandoA))
		if errSlot != nil {
			return ValorNulo, false, false, errSlot
		}
		ret, _, errCall := m.rodarBloco(&m.modulo.Metodos[idx], []Valor{alvo})
		if errCall != nil {
			return ValorNulo, false, false, errCall
		}
		m.push(ret)

	case bytecode.STORE_PROP:
		v := m.pop()
		alvo := m.pop()
		obj, errAlvo := m.exigirObjeto(codeID, q.ip, linha, alvo)
		if errAlvo != nil {
			return ValorNulo, false, false, errAlvo
		}
		idx, errSlot := m.resolverSlotVirtual(codeID, q.ip, linha, obj, int(instr.OperandoA))
		if errSlot != nil {
			return ValorNulo, false, false, errSlot
		}
		if _, _, errCall := m.rodarBloco(&m.modulo.Metodos[idx], []Valor{alvo, v}); errCall != nil {
			return ValorNulo, false, false, errCall
		}

	case bytecode.NEW_ARRAY:
		n := int(instr.OperandoA)
		elems := m.coletarArgs(n)
		m.push(ValorArray(&ArrayRuntime{TipoElemento: instr.Texto, Elementos: elems}))

	case bytecode.LOAD_INDEX:
		idx := m.pop()
		alvo := m.pop()
		arr, errAlvo := m.exigirArray(codeID, q.ip, linha, alvo)
		if errAlvo != nil {
			return ValorNulo, false, false, errAlvo
		}
		i := int(idx.I)
		if i < 0 || i >= len(arr.Elementos) {
			return ValorNulo, false, false, erroExecucao(codeID, q.ip, linha, "índice fora dos limites: %d (tamanho %d)", i, len(arr.Elementos))
		}
		m.push(arr.Elementos[i])

	case bytecode.STORE_INDEX:
		v := m.pop()
		idx := m.pop()
		alvo := m.pop()
		arr, errAlvo := m.exigirArray(codeID, q.ip, linha, alvo)
		if errAlvo != nil {
			return ValorNulo, false, false, errAlvo
		}
		i := int(idx.I)
		if i < 0 || i >= len(arr.Elementos) {
			return ValorNulo, false, false, erroExecucao(codeID, q.ip, linha, "índice fora dos limites: %d (tamanho %d)", i, len(arr.Elementos))
		}
		arr.Elementos[i] = v

	case bytecode.ARRAY_LEN:
		alvo := m.pop()
		switch alvo.Tag {
		case ARRAY:
			m.push(ValorInteiro(int64(len(alvo.Array.Elementos))))
		case TEXTO:
			m.push(ValorInteiro(int64(utf8.RuneCountInString(alvo.S))))
		case NULO:
			return ValorNulo, false, false, erroExecucao(codeID, q.ip, linha, "desreferência de nulo")
		default:
			return ValorNulo, false, false, erroExecucao(codeID, q.ip, linha, "tipo incompatível para tamanho/comprimento: %s", alvo.Tag)
		}

	case bytecode.CHECK_BOUNDS:
		idx := m.peek(0)
		alvo := m.peek(1)
		arr, errAlvo := m.exigirArray(codeID, q.ip, linha, alvo)
		if errAlvo != nil {
			return ValorNulo, false, false, errAlvo
		}
		if idx.Tag != INTEIRO {
			return ValorNulo, false, false, erroExecucao(codeID, q.ip, linha, "índice não inteiro")
		}
		i := int(idx.I)
		if i < 0 || i >= len(arr.Elementos) {
			return ValorNulo, false, false, erroExecucao(codeID, q.ip, linha, "índice fora dos limites: %d (tamanho %d)", i, len(arr.Elementos))
		}

	case bytecode.ADD_I, bytecode.SUB_I, bytecode.MUL_I, bytecode.DIV_I, bytecode.MOD_I:
		b := m.pop()
		a := m.pop()
		r, errArit := m.aritmeticaInteira(codeID, q.ip, linha, opDe(instr.Op), a, b)
		if errArit != nil {
			return ValorNulo, false, false, errArit
		}
		m.push(r)

	case bytecode.ADD_D, bytecode.SUB_D, bytecode.MUL_D, bytecode.DIV_D, bytecode.MOD_D:
		b := m.pop()
		a := m.pop()
		r, errArit := m.aritmeticaDupla(codeID, q.ip, linha, opDe(instr.Op), a, b)
		if errArit != nil {
			return ValorNulo, false, false, errArit
		}
		m.push(r)

	case bytecode.NEG:
		v := m.pop()
		switch v.Tag {
		case INTEIRO, DECIMAL:
			m.push(Valor{Tag: v.Tag, I: -v.I})
		case DUPLO:
			m.push(ValorDuplo(-v.D))
		default:
			return ValorNulo, false, false, erroExecucao(codeID, q.ip, linha, "tipo incompatível para negação: %s", v.Tag)
		}

	case bytecode.NOT:
		v := m.pop()
		if v.Tag != BOOLEANO {
			return ValorNulo, false, false, erroExecucao(codeID, q.ip, linha, "tipo incompatível para negação lógica: %s", v.Tag)
		}
		m.push(ValorBooleano(!v.Bool()))

	case bytecode.EQ:
		b, a := m.pop(), m.pop()
		r, _ := m.comparar(codeID, q.ip, linha, 0, false, a, b)
		m.push(r)

	case bytecode.NE:
		b, a := m.pop(), m.pop()
		r, _ := m.comparar(codeID, q.ip, linha, 0, false, a, b)
		m.push(ValorBooleano(!r.Bool()))

	case bytecode.LT, bytecode.LE, bytecode.GT, bytecode.GE:
		b, a := m.pop(), m.pop()
		r, errCmp := m.comparar(codeID, q.ip, linha, opOrdemDe(instr.Op), true, a, b)
		if errCmp != nil {
			return ValorNulo, false, false, errCmp
		}
		m.push(r)

	case bytecode.AND:
		b, a := m.pop(), m.pop()
		m.push(ValorBooleano(a.Bool() && b.Bool()))

	case bytecode.OR:
		b, a := m.pop(), m.pop()
		m.push(ValorBooleano(a.Bool() || b.Bool()))

	case bytecode.JMP:
		proximoIP = int(instr.OperandoA)

	case bytecode.JMP_IF_FALSE:
		if !m.pop().Bool() {
			proximoIP = int(instr.OperandoA)
		}

	case bytecode.JMP_IF_TRUE:
		if m.pop().Bool() {
			proximoIP = int(instr.OperandoA)
		}

	case bytecode.CALL_FUNC:
		argc := int(instr.OperandoB)
		args := m.coletarArgs(argc)
		alvo := &m.modulo.Metodos[instr.OperandoA]
		ret, temRet, errCall := m.rodarBloco(alvo, args)
		if errCall != nil {
			return ValorNulo, false, false, errCall
		}
		if temRet {
			m.push(ret)
		}

	case bytecode.CALL_METHOD:
		argc := int(instr.OperandoB)
		args := m.coletarArgs(argc)
		receptor := m.pop()
		obj, errRec := m.exigirObjeto(codeID, q.ip, linha, receptor)
		if errRec != nil {
			return ValorNulo, false, false, errRec
		}
		idx, errSlot := m.resolverSlotVirtual(codeID, q.ip, linha, obj, int(instr.OperandoA))
		if errSlot != nil {
			return ValorNulo, false, false, errSlot
		}
		locais := append([]Valor{receptor}, args...)
		ret, temRet, errCall := m.rodarBloco(&m.modulo.Metodos[idx], locais)
		if errCall != nil {
			return ValorNulo, false, false, errCall
		}
		if temRet {
			m.push(ret)
		}

	case bytecode.CALL_STATIC:
		argc := int(instr.OperandoB)
		args := m.coletarArgs(argc)
		alvo := &m.modulo.Metodos[instr.OperandoA]
		locais := args
		if alvo.TemEste {
			receptor := m.pop()
			if _, errRec := m.exigirObjeto(codeID, q.ip, linha, receptor); errRec != nil {
				return ValorNulo, false, false, errRec
			}
			locais = append([]Valor{receptor}, args...)
		}
		ret, temRet, errCall := m.rodarBloco(alvo, locais)
		if errCall != nil {
			return ValorNulo, false, false, errCall
		}
		if temRet {
			m.push(ret)
		}

	case bytecode.CALL_BASE:
		argc := int(instr.OperandoA)
		args := m.coletarArgs(argc)
		baseIdx, errFQN := m.classePorFQN(instr.Texto)
		if errFQN != nil {
			return ValorNulo, false, false, errFQN
		}
		este := q.locais[0]
		locais := append([]Valor{este}, args...)
		ctorIdx := m.modulo.Classes[baseIdx].IndiceCtor
		if _, _, errCall := m.rodarBloco(&m.modulo.Metodos[ctorIdx], locais); errCall != nil {
			return ValorNulo, false, false, errCall
		}

	case bytecode.RET:
		return m.pop(), true, true, nil

	case bytecode.RET_VOID:
		return ValorNulo, false, true, nil

	case bytecode.PRINT:
		v := m.pop()
		fmt.Fprintln(m.Saida, v.S)

	case bytecode.CONCAT:
		b, a := m.pop(), m.pop()
		if a.Tag != TEXTO || b.Tag != TEXTO {
			return ValorNulo, false, false, erroExecucao(codeID, q.ip, linha, "tipo incompatível para concatenação")
		}
		m.push(ValorTexto(a.S + b.S))

	case bytecode.TO_TEXT:
		v := m.pop()
		m.push(ValorTexto(v.ParaTexto()))

	case bytecode.POP:
		m.pop()

	case bytecode.DUP:
		m.push(m.peek(0))

	default:
		return ValorNulo, false, false, erroExecucao(codeID, q.ip, linha, "opcode desconhecido: %s", instr.Op)
	}

	q.ip = proximoIP
	return ValorNulo, false, false, nil
}

// coletarArgs desempilha `n` valores na ordem em que foram empurrados
// (a pilha é LIFO, então os últimos empurrados saem primeiro — é
// preciso inverter para recompor a ordem de declaração/argumento).
func (m *Maquina) coletarArgs(n int) []Valor {
	if n == 0 {
		return nil
	}
	args := make([]Valor, n)
	for i := n - 1; i >= 0; i-- {
		args[i] = m.pop()
	}
	return args
}

func (m *Maquina) exigirObjeto(codeID string, ip, linha int, v Valor) (*Objeto, error) {
	if v.Tag == NULO {
		return nil, erroExecucao(codeID, ip, linha, "desreferência de nulo")
	}
	if v.Tag != OBJETO {
		return nil, erroExecucao(codeID, ip, linha, "marcador de tipo incompatível: esperava objeto, recebeu %s", v.Tag)
	}
	return v.Objeto, nil
}

func (m *Maquina) exigirArray(codeID string, ip, linha int, v Valor) (*ArrayRuntime, error) {
	if v.Tag == NULO {
		return nil, erroExecucao(codeID, ip, linha, "desreferência de nulo")
	}
	if v.Tag != ARRAY {
		return nil, erroExecucao(codeID, ip, linha, "marcador de tipo incompatível: esperava array, recebeu %s", v.Tag)
	}
	return v.Array, nil
}

// resolverSlotVirtual despacha dinamicamente: o slot é uma posição
// estável na vtable (copiada da base e sobrescrita no lugar pelo
// emissor), então indexar pela classe mais concreta do receptor sempre
// resolve para a sobrescrita mais derivada — a posição nunca muda ao
// longo da cadeia de herança, só o code block que ela aponta.
func (m *Maquina) resolverSlotVirtual(codeID string, ip, linha int, obj *Objeto, slot int) (int, error) {
	vtable := m.modulo.Classes[obj.ClasseIdx].VTable
	if slot < 0 || slot >= len(vtable) {
		return -1, erroExecucao(codeID, ip, linha, "método não encontrado na vtable: slot %d", slot)
	}
	idx := vtable[slot].IndiceCodeBlock
	if idx < 0 {
		return -1, erroExecucao(codeID, ip, linha, "método abstrato sem implementação: %s", vtable[slot].Chave)
	}
	return idx, nil
}

// alocarEConstruir aloca um objeto da classe `classIdx` e roda seu
// construtor com `args` (o `este` recém-alocado vai no slot 0) — a
// cadeia `base(...)` -> inicializadores de campo -> corpo já está
// lowerada pelo emissor dentro do próprio code block do construtor
// (§4.8: "NEW class allocates an object, runs field initializers...
// dispatches the constructor").
func (m *Maquina) alocarEConstruir(classIdx int, args []Valor) (*Objeto, error) {
	obj := NovoObjeto(m.modulo, classIdx)
	ctorIdx := m.modulo.Classes[classIdx].IndiceCtor
	locais := append([]Valor{ValorObjeto(obj)}, args...)
	if _, _, err := m.rodarBloco(&m.modulo.Metodos[ctorIdx], locais); err != nil {
		return nil, err
	}
	return obj, nil
}

func opDe(op bytecode.OpCode) opArit {
	switch op {
	case bytecode.ADD_I, bytecode.ADD_D:
		return opSoma
	case bytecode.SUB_I, bytecode.SUB_D:
		return opSubtracao
	case bytecode.MUL_I, bytecode.MUL_D:
		return opMultiplicacao
	case bytecode.DIV_I, bytecode.DIV_D:
		return opDivisao
	case bytecode.MOD_I, bytecode.MOD_D:
		return opModulo
	}
	return opSoma
}

func opOrdemDe(op bytecode.OpCode) opArit {
	switch op {
	case bytecode.LT:
		return opMenor
	case bytecode.LE:
		return opMenorIgual
	case bytecode.GT:
		return opMaior
	case bytecode.GE:
		return opMaiorIgual
	}
	return opMenor
}
