// Interpretador roda um módulo `.pbc` na máquina virtual, opcionalmente
// sob o depurador interativo (spec §6, §4.9).
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/lucasbrandao/pr/internal/bytecode"
	"github.com/lucasbrandao/pr/internal/debugger"
	"github.com/lucasbrandao/pr/internal/diag"
	"github.com/lucasbrandao/pr/internal/pbc"
	"github.com/lucasbrandao/pr/internal/vm"
)

func main() {
	executarFuncao := flag.String("executar-funcao", "", "roda a função livre nomeada como ponto de entrada (code_id main:Nome) em vez do ponto de entrada do módulo")
	depurar := flag.Bool("debug", false, "inicia com o flag de passo ligado, pausando antes da primeira instrução")
	verboso := flag.Bool("verbose", false, "emite log estruturado de cada etapa do pipeline em stderr")
	flag.BoolVar(verboso, "v", false, "forma curta de -verbose")
	flag.Parse()

	if *verboso {
		diag.Ativar(os.Stderr, slog.LevelInfo)
	}

	args := flag.Args()
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "uso: interpretador <arquivo.pbc> [--executar-funcao <Nome>] [--debug] [--verbose]")
		os.Exit(1)
	}
	caminhoEntrada := args[0]

	modulo, err := carregarModulo(caminhoEntrada)
	if err != nil {
		fmt.Fprintf(os.Stderr, "erro de formato de módulo: %v\n", err)
		os.Exit(1)
	}
	diag.Fase("carregar", "arquivo", caminhoEntrada, "classes", len(modulo.Classes), "metodos", len(modulo.Metodos))

	maquina := vm.NovaMaquina(modulo)
	if *depurar {
		maquina.Gancho = debugger.NovoDepurador(os.Stdin, os.Stdout, true)
	}

	if *executarFuncao != "" {
		err = executarEntradaNomeada(maquina, modulo, *executarFuncao)
	} else {
		err = maquina.Executar()
	}
	if err != nil {
		diag.Erro("exec", err)
		fmt.Fprintf(os.Stderr, "erro de execução: %v\n", err)
		os.Exit(1)
	}
}

func carregarModulo(caminho string) (*bytecode.Modulo, error) {
	arquivo, err := os.Open(caminho)
	if err != nil {
		return nil, err
	}
	defer arquivo.Close()
	return pbc.Ler(arquivo)
}

// executarEntradaNomeada roda a função livre `nome` (emitida sob o
// code_id "func:Nome") como ponto de entrada, mas sob o code_id
// sintético "main:Nome" (spec §4.9: distinto da identidade "func:Nome"
// ordinária dessa mesma função, já que breakpoints e o `where` do
// depurador nunca confundem as duas).
func executarEntradaNomeada(maquina *vm.Maquina, modulo *bytecode.Modulo, nome string) error {
	bloco, ok := modulo.BlocoPorCodeID("func:" + nome)
	if !ok {
		return fmt.Errorf("função '%s' não encontrada no módulo", nome)
	}
	entrada := *bloco
	entrada.CodeID = "main:" + nome
	return maquina.ExecutarBloco(&entrada)
}
