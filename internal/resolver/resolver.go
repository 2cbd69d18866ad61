// Package resolver estitcha os ASTs de múltiplos arquivos em um único
// programa, resolvendo importações `usando`, aninhamento `espaco` e
// construindo o grafo de herança/implementação de interfaces (spec §4.4).
package resolver

import (
	"fmt"
	"strings"

	"github.com/lucasbrandao/pr/internal/parser"
	"github.com/lucasbrandao/pr/internal/utils"
)

// SimboloKind classifica o tipo de declaração por trás de um FQN.
type SimboloKind int

const (
	SIMBOLO_CLASSE SimboloKind = iota
	SIMBOLO_INTERFACE
	SIMBOLO_ENUMERACAO
	SIMBOLO_FUNCAO
)

// Simbolo é uma entrada na tabela global de símbolos, indexada por FQN.
type Simbolo struct {
	FQN       string
	Kind      SimboloKind
	Classe    *parser.ClasseDecl
	Interface *parser.InterfaceDecl
	Enum      *parser.EnumeracaoDecl
	Funcao    *parser.FuncaoDecl
}

// ProgramaResolvido é a saída da resolução: a tabela global de símbolos
// mais o grafo de herança e a lista de instruções de nível superior de
// cada arquivo (o ponto de entrada sintético do programa mesclado).
type ProgramaResolvido struct {
	Simbolos    map[string]*Simbolo // FQN -> Simbolo
	Heranca     map[string]string   // FQN de classe -> FQN da classe base ("" se nenhuma)
	Interfaces  map[string][]string // FQN de classe -> FQNs de interfaces implementadas
	Instrucoes  []parser.Comando    // comandos de nível superior de todos os arquivos, na ordem
}

// Resolvedor realiza a resolução de nomes sobre um `parser.Programa`.
type Resolvedor struct {
	simbolos   map[string]*Simbolo
	heranca    map[string]string
	interfaces map[string][]string
}

// NovoResolvedor cria um novo resolvedor vazio.
func NovoResolvedor() *Resolvedor {
	return &Resolvedor{
		simbolos:   make(map[string]*Simbolo),
		heranca:    make(map[string]string),
		interfaces: make(map[string][]string),
	}
}

// fqn calcula o nome totalmente qualificado de uma declaração dado seu
// espaço de nomes envolvente (em branco para declarações de topo).
func fqn(espaco, nome string) string {
	if espaco == "" {
		return nome
	}
	return espaco + "." + nome
}

// Resolver monta a tabela global de símbolos, resolve (pelos conjuntos de
// importação de cada arquivo) os nomes de classe base e de interfaces
// implementadas, constrói o grafo de herança/interfaces com checagem de
// ciclo e confere as sobrescritas. As demais referências de tipo e os
// nomes dentro de corpos de método não são resolvidos aqui: a AST sai com
// os nomes como escritos.
func (r *Resolvedor) Resolver(prog *parser.Programa) (*ProgramaResolvido, error) {
	// Passo 1: tabela global de símbolos.
	for _, arq := range prog.Arquivos {
		for _, decl := range arq.Declaracoes {
			if err := r.registrarSimbolo(decl); err != nil {
				return nil, err
			}
		}
	}

	// Passo 5 (parte 1): grafo de herança.
	for _, simbolo := range r.simbolos {
		if simbolo.Kind != SIMBOLO_CLASSE {
			continue
		}
		baseFQN := ""
		if simbolo.Classe.Base != "" {
			resolvido, err := r.resolverReferenciaTipo(simbolo.Classe.Base, arquivoDoSimbolo(prog, simbolo))
			if err != nil {
				return nil, err
			}
			baseFQN = resolvido.FQN
		}
		r.heranca[simbolo.FQN] = baseFQN

		var ifaceFQNs []string
		for _, nomeIface := range simbolo.Classe.Interfaces {
			resolvido, err := r.resolverReferenciaTipo(nomeIface, arquivoDoSimbolo(prog, simbolo))
			if err != nil {
				return nil, err
			}
			ifaceFQNs = append(ifaceFQNs, resolvido.FQN)
		}
		r.interfaces[simbolo.FQN] = ifaceFQNs
	}

	if err := r.verificarCiclosDeHeranca(); err != nil {
		return nil, err
	}
	if err := r.verificarSobrescritas(); err != nil {
		return nil, err
	}

	var instrucoes []parser.Comando
	for _, arq := range prog.Arquivos {
		instrucoes = append(instrucoes, arq.Instrucoes...)
	}

	return &ProgramaResolvido{
		Simbolos:   r.simbolos,
		Heranca:    r.heranca,
		Interfaces: r.interfaces,
		Instrucoes: instrucoes,
	}, nil
}

func (r *Resolvedor) registrarSimbolo(decl parser.Declaracao) error {
	var nome, espaco string
	simbolo := &Simbolo{}
	switch d := decl.(type) {
	case *parser.ClasseDecl:
		nome, espaco = d.Nome, d.Espaco
		simbolo.Kind = SIMBOLO_CLASSE
		simbolo.Classe = d
	case *parser.InterfaceDecl:
		nome, espaco = d.Nome, d.Espaco
		simbolo.Kind = SIMBOLO_INTERFACE
		simbolo.Interface = d
	case *parser.EnumeracaoDecl:
		nome, espaco = d.Nome, d.Espaco
		simbolo.Kind = SIMBOLO_ENUMERACAO
		simbolo.Enum = d
	case *parser.FuncaoDecl:
		nome, espaco = d.Nome, d.Espaco
		simbolo.Kind = SIMBOLO_FUNCAO
		simbolo.Funcao = d
	default:
		return utils.NovoErro("declaração desconhecida", 0, 0, "")
	}

	simbolo.FQN = fqn(espaco, nome)
	if existente, ok := r.simbolos[simbolo.FQN]; ok {
		_ = existente
		pos := decl.Pos()
		return utils.NovoErro("nome duplicado", pos.Line, pos.Column,
			fmt.Sprintf("'%s' já declarado no programa mesclado", simbolo.FQN))
	}
	r.simbolos[simbolo.FQN] = simbolo
	return nil
}

// conjuntoImportacao computa o espaço de nomes do próprio arquivo mais
// cada `usando X.Y` (passo 2 do algoritmo).
func conjuntoImportacao(arq *parser.ArquivoFonte) []string {
	conjunto := []string{arq.EspacoAtual}
	for _, u := range arq.Usings {
		conjunto = append(conjunto, u.Caminho)
	}
	return conjunto
}

func arquivoDoSimbolo(prog *parser.Programa, s *Simbolo) *parser.ArquivoFonte {
	for _, arq := range prog.Arquivos {
		for _, decl := range arq.Declaracoes {
			if decl.NomeDeclarado() == nomeSimplesDe(s) && fqn(arq.EspacoAtual, decl.NomeDeclarado()) == s.FQN {
				return arq
			}
		}
	}
	return &parser.ArquivoFonte{}
}

func nomeSimplesDe(s *Simbolo) string {
	idx := strings.LastIndex(s.FQN, ".")
	if idx < 0 {
		return s.FQN
	}
	return s.FQN[idx+1:]
}

// resolverReferenciaTipo resolve um nome simples ou qualificado de
// tipo/classe/função seguindo a ordem do passo 3: FQN exato, nome simples
// no namespace corrente, nome simples em cada namespace importado.
// Ambiguidade entre importações é um erro.
func (r *Resolvedor) resolverReferenciaTipo(nome string, arq *parser.ArquivoFonte) (*Simbolo, error) {
	if ePrimitivo(nome) {
		return &Simbolo{FQN: nome}, nil
	}
	if simbolo, ok := r.simbolos[nome]; ok {
		return simbolo, nil
	}

	conjunto := conjuntoImportacao(arq)
	var achados []*Simbolo
	vistos := make(map[string]bool)
	for _, ns := range conjunto {
		candidato := fqn(ns, nome)
		if vistos[candidato] {
			continue
		}
		vistos[candidato] = true
		if simbolo, ok := r.simbolos[candidato]; ok {
			achados = append(achados, simbolo)
		}
	}
	if len(achados) == 1 {
		return achados[0], nil
	}
	if len(achados) > 1 {
		return nil, utils.NovoErro("referência ambígua", 0, 0,
			fmt.Sprintf("'%s' corresponde a mais de uma importação", nome))
	}
	return nil, utils.NovoErro("referência não resolvida", 0, 0,
		fmt.Sprintf("'%s' não encontrado em nenhum namespace importado", nome))
}

func ePrimitivo(nome string) bool {
	switch nome {
	case "inteiro", "decimal", "duplo", "texto", "booleano", "vazio":
		return true
	}
	return false
}

// verificarCiclosDeHeranca garante que o grafo de herança de classes não
// tenha ciclos (invariante do passo 5).
func (r *Resolvedor) verificarCiclosDeHeranca() error {
	estado := make(map[string]int) // 0=não visitado, 1=em progresso, 2=concluído
	var visitar func(fqn string) error
	visitar = func(atual string) error {
		switch estado[atual] {
		case 1:
			return utils.NovoErro("ciclo de herança", 0, 0, fmt.Sprintf("ciclo envolvendo '%s'", atual))
		case 2:
			return nil
		}
		estado[atual] = 1
		if base, ok := r.heranca[atual]; ok && base != "" {
			if err := visitar(base); err != nil {
				return err
			}
		}
		estado[atual] = 2
		return nil
	}
	for classeFQN := range r.heranca {
		if err := visitar(classeFQN); err != nil {
			return err
		}
	}
	return nil
}

// verificarSobrescritas garante que todo método `sobrescreve` corresponda
// a um `redefinível` (ou `abstrata`) em alguma classe base.
func (r *Resolvedor) verificarSobrescritas() error {
	for classeFQN, simbolo := range r.simbolos {
		if simbolo.Kind != SIMBOLO_CLASSE {
			continue
		}
		for _, metodo := range simbolo.Classe.Metodos {
			if !metodo.Sobrescreve {
				continue
			}
			if !r.existeMetodoRedefinivelNaBase(classeFQN, metodo.Nome) {
				pos := metodo.Token.Position
				return utils.NovoErro("sobrescrita inválida", pos.Line, pos.Column,
					fmt.Sprintf("'%s.%s' usa 'sobrescreve' mas nenhuma classe base declara um método 'redefinível' ou 'abstrata' com esse nome", classeFQN, metodo.Nome))
			}
		}
	}
	return nil
}

func (r *Resolvedor) existeMetodoRedefinivelNaBase(classeFQN, nomeMetodo string) bool {
	baseFQN, ok := r.heranca[classeFQN]
	for ok && baseFQN != "" {
		baseSimbolo, existe := r.simbolos[baseFQN]
		if !existe || baseSimbolo.Kind != SIMBOLO_CLASSE {
			return false
		}
		for _, m := range baseSimbolo.Classe.Metodos {
			if m.Nome == nomeMetodo && (m.Redefinivel || m.Abstrato || m.Sobrescreve) {
				return true
			}
		}
		baseFQN, ok = r.heranca[baseFQN]
	}
	return false
}
