// Compilador compila um ou mais arquivos `.pr` em um módulo `.pbc`.
// Um CLI de um alvo só, já que esta linguagem só especifica o alvo
// `bytecode`, acrescido da resolução de um manifesto de projeto e do
// log verboso que o resto do pipeline usa.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/lucasbrandao/pr/internal/compiler"
	"github.com/lucasbrandao/pr/internal/config"
	"github.com/lucasbrandao/pr/internal/diag"
)

func main() {
	alvo := flag.String("target", "bytecode", "alvo de compilação (só 'bytecode' é implementado por este núcleo)")
	caminhoSaida := flag.String("o", "", "caminho do arquivo de saída (padrão: <primeiro-arquivo>.pbc)")
	caminhoConfig := flag.String("config", "", "caminho de um manifesto pr.toml (padrão: procurado a partir do diretório atual)")
	verboso := flag.Bool("verbose", false, "emite log estruturado de cada etapa do pipeline em stderr")
	flag.BoolVar(verboso, "v", false, "forma curta de -verbose")
	flag.Parse()

	if *verboso {
		diag.Ativar(os.Stderr, slog.LevelInfo)
	}

	entradas, err := resolverEntradas(flag.Args(), *caminhoConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "erro: %v\n", err)
		os.Exit(1)
	}
	if len(entradas) == 0 {
		fmt.Fprintln(os.Stderr, "uso: compilador <arquivo.pr>... [--target=<t>] [-o <caminho>] [--config <caminho>] [--verbose]")
		os.Exit(1)
	}

	if *alvo != "bytecode" {
		fmt.Fprintf(os.Stderr, "alvo '%s' não é implementado por este núcleo (delegado a um backend externo)\n", *alvo)
		os.Exit(1)
	}

	saida := *caminhoSaida
	if saida == "" {
		saida = strings.TrimSuffix(entradas[0], filepath.Ext(entradas[0])) + ".pbc"
	}

	if err := compiler.NovaPipeline().CompilarParaArquivo(entradas, saida); err != nil {
		fmt.Fprintf(os.Stderr, "erro de compilação: %v\n", err)
		os.Exit(1)
	}
}

// resolverEntradas devolve os arquivos a compilar: os argumentos
// posicionais quando presentes, senão a lista `entradas` de um
// manifesto `pr.toml` (explícito via --config ou encontrado subindo a
// partir do diretório atual), resolvida caminho por caminho via
// `Manifesto.ResolverEntrada` (spec §4.10).
func resolverEntradas(posicionais []string, caminhoConfig string) ([]string, error) {
	if len(posicionais) > 0 {
		return posicionais, nil
	}

	if caminhoConfig == "" {
		dir, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		achado, existe, err := config.Encontrar(dir)
		if err != nil {
			return nil, err
		}
		if !existe {
			return nil, nil
		}
		caminhoConfig = achado
	}

	manifesto, err := config.Carregar(caminhoConfig)
	if err != nil {
		return nil, fmt.Errorf("carregando manifesto '%s': %w", caminhoConfig, err)
	}

	entradas := make([]string, 0, len(manifesto.Projeto.Entradas))
	for _, nome := range manifesto.Projeto.Entradas {
		caminho, err := manifesto.ResolverEntrada(nome)
		if err != nil {
			return nil, err
		}
		entradas = append(entradas, caminho)
	}
	return entradas, nil
}
