package parser

import (
	"fmt"

	"github.com/m1gwings/treedrawer/tree"
)

// VisualizadorArvore cria representações visuais da AST usando treedrawer.
// Generalizado a partir da versão original (que só conhecia Constante e
// OperacaoBinaria) para cobrir todo o conjunto de nós de expressão e
// comando. A saída é um desenho de árvore para leitura, não código-fonte
// que possa ser reanalisado.
type VisualizadorArvore struct{}

// NovoVisualizador cria um novo visualizador
func NovoVisualizador() *VisualizadorArvore {
	return &VisualizadorArvore{}
}

// ImprimirArvoreExpressao imprime a árvore de uma expressão no console.
func (v *VisualizadorArvore) ImprimirArvoreExpressao(expressao Expressao) {
	fmt.Println("=== Árvore Sintática (expressão) ===")
	fmt.Println(v.arvoreDeExpressao(expressao))
	fmt.Println()
}

// ImprimirArvoreComando imprime a árvore de um comando no console.
func (v *VisualizadorArvore) ImprimirArvoreComando(comando Comando) {
	fmt.Println("=== Árvore Sintática (comando) ===")
	fmt.Println(v.arvoreDeComando(comando))
	fmt.Println()
}

// arvoreDeExpressao converte um nó de expressão em uma tree.Tree, com seus
// filhos anexados recursivamente.
func (v *VisualizadorArvore) arvoreDeExpressao(expressao Expressao) *tree.Tree {
	if expressao == nil {
		return tree.NewTree(tree.NodeString("∅"))
	}

	switch expr := expressao.(type) {
	case *LiteralInteiro, *LiteralDecimal, *LiteralDuplo, *LiteralTexto,
		*LiteralBooleano, *Identificador, *Este:
		return tree.NewTree(tree.NodeString(expr.String()))

	case *TextoInterpolado:
		raiz := tree.NewTree(tree.NodeString("interpolado"))
		for _, parte := range expr.Partes {
			if parte.Expr != nil {
				v.anexarFilho(raiz, v.arvoreDeExpressao(parte.Expr))
			} else {
				v.anexarFilho(raiz, tree.NewTree(tree.NodeString(fmt.Sprintf("%q", parte.Literal))))
			}
		}
		return raiz

	case *AcessoMembro:
		raiz := tree.NewTree(tree.NodeString("." + expr.Nome))
		v.anexarFilho(raiz, v.arvoreDeExpressao(expr.Alvo))
		return raiz

	case *ChamadaMetodo:
		raiz := tree.NewTree(tree.NodeString("chamada:" + expr.Nome))
		v.anexarFilho(raiz, v.arvoreDeExpressao(expr.Alvo))
		for _, arg := range expr.Argumentos {
			v.anexarFilho(raiz, v.arvoreDeExpressao(arg))
		}
		return raiz

	case *ChamadaFuncao:
		raiz := tree.NewTree(tree.NodeString("chamada:" + expr.Nome))
		for _, arg := range expr.Argumentos {
			v.anexarFilho(raiz, v.arvoreDeExpressao(arg))
		}
		return raiz

	case *NovaInstancia:
		raiz := tree.NewTree(tree.NodeString("novo:" + expr.ClasseNome))
		for _, arg := range expr.Argumentos {
			v.anexarFilho(raiz, v.arvoreDeExpressao(arg))
		}
		return raiz

	case *LiteralArray:
		raiz := tree.NewTree(tree.NodeString("array"))
		for _, elem := range expr.Elementos {
			v.anexarFilho(raiz, v.arvoreDeExpressao(elem))
		}
		return raiz

	case *Indexacao:
		raiz := tree.NewTree(tree.NodeString("indice"))
		v.anexarFilho(raiz, v.arvoreDeExpressao(expr.Alvo))
		v.anexarFilho(raiz, v.arvoreDeExpressao(expr.Indice))
		return raiz

	case *OperacaoBinaria:
		raiz := tree.NewTree(tree.NodeString(expr.Operador.String()))
		v.anexarFilho(raiz, v.arvoreDeExpressao(expr.Esquerda))
		v.anexarFilho(raiz, v.arvoreDeExpressao(expr.Direita))
		return raiz

	case *OperacaoUnaria:
		sinal := "-"
		if expr.Operador == OP_NEGACAO_LOGICA {
			sinal = "!"
		}
		raiz := tree.NewTree(tree.NodeString(sinal))
		v.anexarFilho(raiz, v.arvoreDeExpressao(expr.Operando))
		return raiz

	default:
		return tree.NewTree(tree.NodeString("?"))
	}
}

// arvoreDeComando converte um nó de comando em uma tree.Tree.
func (v *VisualizadorArvore) arvoreDeComando(comando Comando) *tree.Tree {
	if comando == nil {
		return tree.NewTree(tree.NodeString("∅"))
	}

	switch cmd := comando.(type) {
	case *Bloco:
		raiz := tree.NewTree(tree.NodeString("bloco"))
		for _, c := range cmd.Comandos {
			v.anexarFilho(raiz, v.arvoreDeComando(c))
		}
		return raiz

	case *DeclaracaoVar:
		raiz := tree.NewTree(tree.NodeString("var:" + cmd.Nome))
		v.anexarFilho(raiz, v.arvoreDeExpressao(cmd.Valor))
		return raiz

	case *Atribuicao:
		raiz := tree.NewTree(tree.NodeString("="))
		v.anexarFilho(raiz, v.arvoreDeExpressao(cmd.Alvo))
		v.anexarFilho(raiz, v.arvoreDeExpressao(cmd.Valor))
		return raiz

	case *ComandoExpressao:
		return v.arvoreDeExpressao(cmd.Expr)

	case *ComandoImprima:
		raiz := tree.NewTree(tree.NodeString("imprima"))
		v.anexarFilho(raiz, v.arvoreDeExpressao(cmd.Valor))
		return raiz

	case *ComandoSe:
		raiz := tree.NewTree(tree.NodeString("se"))
		v.anexarFilho(raiz, v.arvoreDeExpressao(cmd.Condicao))
		v.anexarFilho(raiz, v.arvoreDeComando(cmd.BlocoSe))
		if cmd.BlocoSenao != nil {
			v.anexarFilho(raiz, v.arvoreDeComando(cmd.BlocoSenao))
		}
		return raiz

	case *ComandoEnquanto:
		raiz := tree.NewTree(tree.NodeString("enquanto"))
		v.anexarFilho(raiz, v.arvoreDeExpressao(cmd.Condicao))
		v.anexarFilho(raiz, v.arvoreDeComando(cmd.Corpo))
		return raiz

	case *ComandoPara:
		raiz := tree.NewTree(tree.NodeString("para"))
		if cmd.Inicializador != nil {
			v.anexarFilho(raiz, v.arvoreDeComando(cmd.Inicializador))
		}
		if cmd.Condicao != nil {
			v.anexarFilho(raiz, v.arvoreDeExpressao(cmd.Condicao))
		}
		if cmd.Passo != nil {
			v.anexarFilho(raiz, v.arvoreDeComando(cmd.Passo))
		}
		v.anexarFilho(raiz, v.arvoreDeComando(cmd.Corpo))
		return raiz

	case *ComandoRetorne:
		raiz := tree.NewTree(tree.NodeString("retorne"))
		if cmd.Valor != nil {
			v.anexarFilho(raiz, v.arvoreDeExpressao(cmd.Valor))
		}
		return raiz

	default:
		return tree.NewTree(tree.NodeString("?"))
	}
}

// anexarFilho anexa `filho` como subárvore de `pai`, copiando seus próprios
// filhos recursivamente (o treedrawer anexa por valor, não por ponteiro).
func (v *VisualizadorArvore) anexarFilho(pai *tree.Tree, filho *tree.Tree) {
	novoFilho := pai.AddChild(filho.Val())
	v.copiarFilhos(filho, novoFilho)
}

func (v *VisualizadorArvore) copiarFilhos(origem *tree.Tree, destino *tree.Tree) {
	for i := 0; ; i++ {
		filho, err := origem.Child(i)
		if err != nil {
			break
		}
		novoFilho := destino.AddChild(filho.Val())
		v.copiarFilhos(filho, novoFilho)
	}
}
