// Package debugger implementa o depurador interativo: um laço de
// leitura-avaliação-impressão que pausa a execução da máquina antes de
// uma instrução quando o flag de passo está ligado ou a posição
// corrente está em um breakpoint. Implementa vm.GanchoDepuracao — a
// máquina nunca importa este pacote, só o contrário — com breakpoints
// por (`code_id`, ip) em vez de arquivo:linha, já que este depurador
// nunca mapeia de volta para linhas de origem.
package debugger

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/lucasbrandao/pr/internal/bytecode"
	"github.com/lucasbrandao/pr/internal/vm"
)

var errAbortado = fmt.Errorf("execução abortada pelo depurador (q)")

// ponto identifica um breakpoint pelo par (code_id, ip) do §4.9 — nunca
// por linha de origem.
type ponto struct {
	CodeID string
	IP     int
}

// Depurador mantém o flag de passo e o conjunto de breakpoints entre
// chamadas de AntesDeInstrucao; cada pausa lê comandos de `entrada` e
// escreve em `saida` até um comando de retomada ou `q`.
type Depurador struct {
	entrada *bufio.Reader
	saida   io.Writer
	passo   bool
	pontos  map[ponto]bool
}

// NovoDepurador monta um depurador pronto para ser atribuído a
// `vm.Maquina.Gancho`. `passoInicial` corresponde a iniciar já com o
// flag de passo ligado (equivalente a um `--debug` que para na
// primeira instrução).
func NovoDepurador(entrada io.Reader, saida io.Writer, passoInicial bool) *Depurador {
	return &Depurador{
		entrada: bufio.NewReader(entrada),
		saida:   saida,
		passo:   passoInicial,
		pontos:  make(map[ponto]bool),
	}
}

// AdicionarPonto, RemoverPonto e TemPonto existem para quem quiser
// programar breakpoints antes de iniciar a execução (ex. um
// `--break method:Car::accel:3` na linha de comando), além dos
// comandos `bp add`/`bp del` do próprio REPL.
func (d *Depurador) AdicionarPonto(codeID string, ip int) {
	d.pontos[ponto{codeID, ip}] = true
}

func (d *Depurador) RemoverPonto(codeID string, ip int) {
	delete(d.pontos, ponto{codeID, ip})
}

// TemPonto relata se há um breakpoint na posição dada.
func (d *Depurador) TemPonto(codeID string, ip int) bool {
	return d.pontos[ponto{codeID, ip}]
}

// AntesDeInstrucao implementa vm.GanchoDepuracao: só entra no REPL
// quando o flag de passo está ligado ou a posição corrente é um
// breakpoint; caso contrário devolve o controle imediatamente, sem
// custo de E/S.
func (d *Depurador) AntesDeInstrucao(codeID string, ip int, m *vm.Maquina) error {
	_, parouEmBreakpoint := d.pontos[ponto{codeID, ip}]
	if !d.passo && !parouEmBreakpoint {
		return nil
	}
	if parouEmBreakpoint {
		fmt.Fprintf(d.saida, "breakpoint em %s:%d\n", codeID, ip)
	}
	return d.loop(m)
}

// loop lê e executa comandos até um que devolva o controle à máquina
// (`c`/`s`/`n`) ou aborte a execução (`q`).
func (d *Depurador) loop(m *vm.Maquina) error {
	for {
		fmt.Fprint(d.saida, "(depurar) ")
		linha, err := d.entrada.ReadString('\n')
		if err != nil {
			// Entrada esgotada (ex. stdin fechado em execução não
			// interativa): trata como `c` para não travar para sempre.
			return nil
		}
		campos := strings.Fields(linha)
		if len(campos) == 0 {
			continue
		}
		cmd, args := campos[0], campos[1:]

		switch cmd {
		case "c", "cont":
			d.passo = false
			return nil
		case "s", "step", "n":
			d.passo = true
			return nil
		case "p":
			d.imprimirPilha(m)
		case "vars":
			d.imprimirVars(m)
		case "v":
			if len(args) < 1 {
				fmt.Fprintln(d.saida, "uso: v <nome>")
				continue
			}
			d.imprimirVar(m, args[0])
		case "dis":
			n := 8
			if len(args) >= 1 {
				if v, err := strconv.Atoi(args[0]); err == nil {
					n = v
				}
			}
			d.desmontar(m, n)
		case "where":
			d.onde(m)
		case "bp":
			d.breakpoint(m, args)
		case "help":
			d.ajuda()
		case "q":
			return errAbortado
		default:
			fmt.Fprintf(d.saida, "comando desconhecido: %s (\"help\" para a lista)\n", cmd)
		}
	}
}

func (d *Depurador) imprimirPilha(m *vm.Maquina) {
	pilha := m.Pilha()
	if len(pilha) == 0 {
		fmt.Fprintln(d.saida, "(pilha vazia)")
		return
	}
	for i, v := range pilha {
		fmt.Fprintf(d.saida, "%d: %s\n", i, v.ParaTexto())
	}
}

func (d *Depurador) imprimirVars(m *vm.Maquina) {
	_, _, nomes, locais, _ := m.QuadroAtual()
	if len(nomes) == 0 {
		fmt.Fprintln(d.saida, "(sem locais visíveis)")
		return
	}
	for i, nome := range nomes {
		fmt.Fprintf(d.saida, "%s = %s\n", nome, locais[i].ParaTexto())
	}
}

func (d *Depurador) imprimirVar(m *vm.Maquina, nome string) {
	_, _, nomes, locais, _ := m.QuadroAtual()
	for i, n := range nomes {
		if n == nome {
			fmt.Fprintf(d.saida, "%s = %s\n", nome, locais[i].ParaTexto())
			return
		}
	}
	fmt.Fprintf(d.saida, "variável não encontrada: %s\n", nome)
}

func (d *Depurador) desmontar(m *vm.Maquina, n int) {
	codeID, ip, _, _, instrucoes := m.QuadroAtual()
	fim := ip + n
	if fim > len(instrucoes) {
		fim = len(instrucoes)
	}
	for i := ip; i < fim; i++ {
		fmt.Fprintf(d.saida, "%s:%d %s\n", codeID, i, formatarInstrucao(instrucoes[i]))
	}
}

func (d *Depurador) onde(m *vm.Maquina) {
	codeID, ip, _, _, instrucoes := m.QuadroAtual()
	if ip < len(instrucoes) {
		fmt.Fprintf(d.saida, "%s:%d %s\n", codeID, ip, formatarInstrucao(instrucoes[ip]))
	} else {
		fmt.Fprintf(d.saida, "%s:%d (fim do code block)\n", codeID, ip)
	}
}

func (d *Depurador) breakpoint(m *vm.Maquina, args []string) {
	if len(args) == 0 {
		fmt.Fprintln(d.saida, "uso: bp add|del|list [code_id] <ip>")
		return
	}
	codeIDAtual, _, _, _, _ := m.QuadroAtual()

	switch args[0] {
	case "add":
		codeID, ip, ok := codeIDEIP(args[1:], codeIDAtual)
		if !ok {
			fmt.Fprintln(d.saida, "uso: bp add [code_id] <ip>")
			return
		}
		d.AdicionarPonto(codeID, ip)
		fmt.Fprintf(d.saida, "breakpoint em %s:%d\n", codeID, ip)
	case "del":
		codeID, ip, ok := codeIDEIP(args[1:], codeIDAtual)
		if !ok {
			fmt.Fprintln(d.saida, "uso: bp del [code_id] <ip>")
			return
		}
		d.RemoverPonto(codeID, ip)
		fmt.Fprintf(d.saida, "breakpoint removido de %s:%d\n", codeID, ip)
	case "list":
		filtro := codeIDAtual
		if len(args) >= 2 {
			filtro = args[1]
		}
		d.listarPontos(filtro, len(args) >= 2)
	default:
		fmt.Fprintln(d.saida, "uso: bp add|del|list [code_id] <ip>")
	}
}

// codeIDEIP lê `[code_id] <ip>` — se só um argumento é dado, é o IP e
// o code_id corrente é usado (§4.9: "add [code_id] <ip> — defaults to
// current code_id").
func codeIDEIP(args []string, codeIDAtual string) (string, int, bool) {
	switch len(args) {
	case 1:
		ip, err := strconv.Atoi(args[0])
		if err != nil {
			return "", 0, false
		}
		return codeIDAtual, ip, true
	case 2:
		ip, err := strconv.Atoi(args[1])
		if err != nil {
			return "", 0, false
		}
		return args[0], ip, true
	default:
		return "", 0, false
	}
}

func (d *Depurador) listarPontos(filtro string, filtrar bool) {
	var chaves []ponto
	for p := range d.pontos {
		if !filtrar || p.CodeID == filtro {
			chaves = append(chaves, p)
		}
	}
	if len(chaves) == 0 {
		fmt.Fprintln(d.saida, "(nenhum breakpoint)")
		return
	}
	sort.Slice(chaves, func(i, j int) bool {
		if chaves[i].CodeID != chaves[j].CodeID {
			return chaves[i].CodeID < chaves[j].CodeID
		}
		return chaves[i].IP < chaves[j].IP
	})
	for _, p := range chaves {
		fmt.Fprintf(d.saida, "%s:%d\n", p.CodeID, p.IP)
	}
}

func (d *Depurador) ajuda() {
	fmt.Fprintln(d.saida, "c, cont             - continua a execução")
	fmt.Fprintln(d.saida, "s, step, n          - executa um passo (desce em chamadas)")
	fmt.Fprintln(d.saida, "p                   - imprime a pilha de valores, fundo ao topo")
	fmt.Fprintln(d.saida, "vars                - lista locais e parâmetros visíveis")
	fmt.Fprintln(d.saida, "v <nome>            - imprime uma variável")
	fmt.Fprintln(d.saida, "dis [n]             - desmonta as próximas n instruções (padrão 8)")
	fmt.Fprintln(d.saida, "where               - imprime code_id, ip e a instrução corrente")
	fmt.Fprintln(d.saida, "bp add [code_id] <ip> - adiciona breakpoint")
	fmt.Fprintln(d.saida, "bp del [code_id] <ip> - remove breakpoint")
	fmt.Fprintln(d.saida, "bp list [code_id]   - lista breakpoints")
	fmt.Fprintln(d.saida, "help                - esta lista")
	fmt.Fprintln(d.saida, "q                   - aborta a execução")
}

// formatarInstrucao desmonta uma instrução para exibição em `dis`/
// `where`: opcode seguido de seus operandos relevantes, omitindo os
// que a instrução não usa.
func formatarInstrucao(instr bytecode.Instrucao) string {
	var b strings.Builder
	b.WriteString(instr.Op.String())
	if instr.OperandoA != 0 || usaOperandoA(instr.Op) {
		fmt.Fprintf(&b, " %d", instr.OperandoA)
	}
	if usaOperandoB(instr.Op) {
		fmt.Fprintf(&b, " %d", instr.OperandoB)
	}
	if instr.Texto != "" {
		fmt.Fprintf(&b, " %q", instr.Texto)
	}
	return b.String()
}

func usaOperandoA(op bytecode.OpCode) bool {
	switch op {
	case bytecode.LOAD_CONST_INT, bytecode.LOAD_CONST_DECIMAL, bytecode.LOAD_CONST_TEXT,
		bytecode.LOAD_BOOL, bytecode.LOAD_LOCAL, bytecode.STORE_LOCAL, bytecode.NEW,
		bytecode.NEW_ARRAY, bytecode.JMP, bytecode.JMP_IF_FALSE, bytecode.JMP_IF_TRUE,
		bytecode.CALL_FUNC, bytecode.CALL_METHOD, bytecode.CALL_STATIC, bytecode.CALL_BASE,
		bytecode.LOAD_PROP, bytecode.STORE_PROP:
		return true
	}
	return false
}

func usaOperandoB(op bytecode.OpCode) bool {
	switch op {
	case bytecode.CALL_FUNC, bytecode.CALL_METHOD, bytecode.CALL_STATIC:
		return true
	}
	return false
}
