// Package config carrega o manifesto opcional `pr.toml` de um projeto
// (spec §4.10): lista de arquivos de entrada, namespace raiz, alvo/saída
// de compilação e caminhos de busca adicionais. Quando presente, o
// `compilador` usa sua lista de entradas no lugar dos arquivos
// posicionais (arquivos explícitos sempre a sobrescrevem); o alvo e o
// caminho de saída do manifesto são decodificados, mas não lidos pelo
// `compilador`.
package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Projeto é a seção `[projeto]` do manifesto.
type Projeto struct {
	Nome          string   `toml:"nome"`
	Entradas      []string `toml:"entradas"`
	RaizNamespace string   `toml:"raiz_namespace"`
}

// Saida é a seção `[saida]`: o alvo de compilação e o caminho do
// artefato gerado.
type Saida struct {
	Alvo    string `toml:"alvo"`
	Caminho string `toml:"caminho"`
}

// Buscas é a seção `[buscas]`: diretórios adicionais, além do diretório
// do próprio manifesto, onde procurar arquivos de entrada referenciados
// por nome relativo.
type Buscas struct {
	Caminhos []string `toml:"caminhos"`
}

// Manifesto é o `pr.toml` de um projeto completo.
type Manifesto struct {
	Projeto Projeto `toml:"projeto"`
	Saida   Saida   `toml:"saida"`
	Buscas  Buscas  `toml:"buscas"`

	// raiz é o diretório onde o manifesto foi encontrado — toda entrada
	// relativa em Projeto.Entradas e Buscas.Caminhos é resolvida a
	// partir dele, não do diretório de trabalho corrente.
	raiz string
}

// Carregar lê e decodifica um manifesto de `caminho`.
func Carregar(caminho string) (*Manifesto, error) {
	var m Manifesto
	if _, err := toml.DecodeFile(caminho, &m); err != nil {
		return nil, err
	}
	m.raiz = filepath.Dir(caminho)
	return &m, nil
}

// Encontrar sobe a partir de `dir` procurando um `pr.toml`, parando no
// primeiro encontrado — o mesmo algoritmo de "subir procurando um
// arquivo marcador" usado por ferramentas de build que descobrem a raiz
// de um projeto a partir de um subdiretório qualquer. Devolve
// `("", false, nil)` sem erro quando nenhum manifesto existe: um
// manifesto é sempre opcional (spec §4.10).
func Encontrar(dir string) (string, bool, error) {
	atual, err := filepath.Abs(dir)
	if err != nil {
		return "", false, err
	}
	for {
		candidato := filepath.Join(atual, "pr.toml")
		if info, err := os.Stat(candidato); err == nil && !info.IsDir() {
			return candidato, true, nil
		}
		pai := filepath.Dir(atual)
		if pai == atual {
			return "", false, nil
		}
		atual = pai
	}
}

// ResolverEntrada localiza um arquivo de entrada do manifesto: primeiro
// como caminho absoluto ou relativo à raiz do manifesto, e só então nos
// diretórios extras de `Buscas.Caminhos` — uma busca em vários
// diretórios, sem as variantes de nome de pacote (`nome/nome.ext`,
// `nome/index.ext`) que um resolvedor de módulos precisaria, já que uma
// entrada do manifesto já é um caminho de arquivo completo, não um nome
// de módulo a desambiguar.
func (m *Manifesto) ResolverEntrada(nome string) (string, error) {
	direto := nome
	if !filepath.IsAbs(direto) {
		direto = filepath.Join(m.raiz, nome)
	}
	if _, err := os.Stat(direto); err == nil {
		return direto, nil
	}

	for _, busca := range m.Buscas.Caminhos {
		candidato := busca
		if !filepath.IsAbs(candidato) {
			candidato = filepath.Join(m.raiz, busca)
		}
		candidato = filepath.Join(candidato, nome)
		if _, err := os.Stat(candidato); err == nil {
			return candidato, nil
		}
	}

	return "", &ErroEntradaNaoEncontrada{Nome: nome, CaminhosBusca: m.Buscas.Caminhos}
}

// ErroEntradaNaoEncontrada relata que nenhum dos caminhos de busca do
// manifesto contém o arquivo de entrada nomeado.
type ErroEntradaNaoEncontrada struct {
	Nome          string
	CaminhosBusca []string
}

func (e *ErroEntradaNaoEncontrada) Error() string {
	return "config: entrada '" + e.Nome + "' não encontrada nos caminhos de busca do manifesto"
}
