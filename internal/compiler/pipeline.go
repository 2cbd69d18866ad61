// Package compiler orquestra o pipeline completo: lex → parse (a
// expansão de interpolação já acontece dentro do parser, como uma
// re-invocação dele mesmo sobre o corpo de um `TEXTO_INTERPOLADO` — não
// há passe separado) → resolução de nomes → checagem de tipos → emissão
// de bytecode, terminando num `*bytecode.Modulo` pronto para
// `internal/pbc.Escrever`. A `Pipeline` encadeia os seis estágios de
// verdade desta linguagem, um após o outro, abortando no primeiro erro
// — cada estágio é fatal para os que vêm depois dele.
package compiler

import (
	"os"

	"github.com/lucasbrandao/pr/internal/bytecode"
	"github.com/lucasbrandao/pr/internal/diag"
	"github.com/lucasbrandao/pr/internal/lexer"
	"github.com/lucasbrandao/pr/internal/parser"
	"github.com/lucasbrandao/pr/internal/pbc"
	"github.com/lucasbrandao/pr/internal/resolver"
	"github.com/lucasbrandao/pr/internal/tipos"
	"github.com/lucasbrandao/pr/internal/utils"
)

// Pipeline não guarda estado entre chamadas a Compilar — cada chamada
// parte de arquivos fonte e só produz um módulo novo, nunca reaproveita
// um resolvedor/checador/emissor de uma compilação anterior (spec §5:
// "the compiler is a pure function from files to files").
type Pipeline struct{}

// NovaPipeline cria uma pipeline de compilação.
func NovaPipeline() *Pipeline { return &Pipeline{} }

// Compilar lê, analisa, resolve, tipa e emite bytecode para os arquivos
// fonte dados, nessa ordem, mesclando todos em um único programa antes
// da resolução de nomes (spec §4.4: importações `usando` podem
// atravessar arquivos).
func (p *Pipeline) Compilar(caminhos []string) (*bytecode.Modulo, error) {
	programa := &parser.Programa{}

	for _, caminho := range caminhos {
		conteudo, err := utils.LerArquivo(caminho)
		if err != nil {
			diag.Erro("lex", err, "arquivo", caminho)
			return nil, err
		}

		tokens, err := lexer.NovoLexer(conteudo).Tokenizar()
		if err != nil {
			diag.Erro("lex", err, "arquivo", caminho)
			return nil, err
		}
		diag.Fase("lex", "arquivo", caminho, "tokens", len(tokens))

		arquivo, err := parser.NovoParser(tokens).AnalisarArquivo(caminho)
		if err != nil {
			diag.Erro("parse", err, "arquivo", caminho)
			return nil, err
		}
		diag.Fase("parse", "arquivo", caminho, "declaracoes", len(arquivo.Declaracoes))

		programa.Arquivos = append(programa.Arquivos, arquivo)
	}

	resolvido, err := resolver.NovoResolvedor().Resolver(programa)
	if err != nil {
		diag.Erro("resolve", err)
		return nil, err
	}
	diag.Fase("resolve", "simbolos", len(resolvido.Simbolos))

	checker := tipos.NovoChecker(resolvido)
	if err := checker.Verificar(resolvido); err != nil {
		diag.Erro("typecheck", err)
		return nil, err
	}
	diag.Fase("typecheck", "anotacoes", len(checker.Anotacoes))

	modulo, err := bytecode.NovoEmissor(resolvido, checker.Anotacoes).Emitir()
	if err != nil {
		diag.Erro("emit", err)
		return nil, err
	}
	diag.Fase("emit", "classes", len(modulo.Classes), "metodos", len(modulo.Metodos))

	return modulo, nil
}

// CompilarParaArquivo compila e serializa o módulo resultante em
// `caminhoSaida` no formato `.pbc` (spec §4.7, §6).
func (p *Pipeline) CompilarParaArquivo(caminhosEntrada []string, caminhoSaida string) error {
	modulo, err := p.Compilar(caminhosEntrada)
	if err != nil {
		return err
	}

	arquivo, err := os.Create(caminhoSaida)
	if err != nil {
		diag.Erro("escrita", err, "arquivo", caminhoSaida)
		return err
	}
	defer arquivo.Close()

	if err := pbc.Escrever(arquivo, modulo); err != nil {
		diag.Erro("escrita", err, "arquivo", caminhoSaida)
		return err
	}
	diag.Fase("escrita", "arquivo", caminhoSaida)
	return nil
}
