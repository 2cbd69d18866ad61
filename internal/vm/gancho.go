package vm

// GanchoDepuracao é consultado pela máquina antes de cada instrução
// (spec §4.8: "After each instruction the interpreter optionally
// consults the debugger"). Definida aqui, e não em internal/debugger,
// para que este pacote nunca precise importar o depurador — é o
// depurador que importa `vm` e implementa esta interface, nunca o
// contrário, evitando um ciclo de importação.
//
// A implementação é responsável por bloquear internamente enquanto
// decide o que fazer (consultar breakpoints, ler um comando do usuário,
// imprimir estado) — `AntesDeInstrucao` só devolve o controle à máquina
// quando a execução deve de fato prosseguir. Um erro não-nulo aborta a
// execução (o comando `q` do depurador, por exemplo).
type GanchoDepuracao interface {
	AntesDeInstrucao(codeID string, ip int, m *Maquina) error
}
