package vm

import "fmt"

// ErroExecucao é um erro de execução fatal: marcador de tipo
// incompatível, divisão/módulo por zero, índice fora dos limites, método
// ausente na vtable (deveria ser estaticamente impossível) ou
// desreferenciamento de nulo. Carrega o `code_id` e a posição de
// instrução onde ocorreu, para mensagens no formato "erro de execução em
// <code_id>:<ip> (linha <n>): <mensagem>", cobrindo múltiplos code blocks
// em vez de uma lista de instruções única.
type ErroExecucao struct {
	CodeID   string
	IP       int
	Linha    int
	Mensagem string
}

func (e *ErroExecucao) Error() string {
	return fmt.Sprintf("erro de execução em %s:%d (linha %d): %s", e.CodeID, e.IP, e.Linha, e.Mensagem)
}

func erroExecucao(codeID string, ip, linha int, formato string, args ...interface{}) error {
	return &ErroExecucao{CodeID: codeID, IP: ip, Linha: linha, Mensagem: fmt.Sprintf(formato, args...)}
}
