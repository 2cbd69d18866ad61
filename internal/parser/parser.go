package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lucasbrandao/pr/internal/lexer"
	"github.com/lucasbrandao/pr/internal/utils"
)

// Precedencia define a precedência dos operadores, do menos para o mais
// fortemente ligado, conforme a gramática de expressões.
type Precedencia int

const (
	PRECEDENCIA_NENHUMA Precedencia = iota
	PRECEDENCIA_OU                  // ||
	PRECEDENCIA_E                   // &&
	PRECEDENCIA_IGUALDADE           // == !=
	PRECEDENCIA_RELACIONAL          // < <= > >=
	PRECEDENCIA_ADITIVA             // + -
	PRECEDENCIA_MULTIPLICATIVA      // * / %
	PRECEDENCIA_UNARIA
	PRECEDENCIA_POSFIXA // .membro, (chamada), [indice]
)

// Parser representa o analisador sintático descendente recursivo com
// análise de precedência (Pratt) para expressões.
type Parser struct {
	tokens       []lexer.Token
	posicaoAtual int
}

// NovoParser cria um novo analisador sintático
func NovoParser(tokens []lexer.Token) *Parser {
	return &Parser{tokens: tokens}
}

// AnalisarArquivo analisa um arquivo fonte completo: cláusulas `usando`,
// um `espaco` opcional, declarações de alto nível e comandos de nível
// superior (o ponto de entrada sintético do arquivo).
func (p *Parser) AnalisarArquivo(caminho string) (*ArquivoFonte, error) {
	arquivo := &ArquivoFonte{Caminho: caminho}

	for p.tokenAtual().Type == lexer.USANDO {
		tok := p.proximoToken()
		caminhoUsado, err := p.analisarCaminhoPontilhado()
		if err != nil {
			return nil, err
		}
		if err := p.verificarProximoToken(lexer.SEMICOLON); err != nil {
			return nil, err
		}
		arquivo.Usings = append(arquivo.Usings, Usando{Caminho: caminhoUsado, Token: tok})
	}

	if p.tokenAtual().Type == lexer.ESPACO {
		p.proximoToken()
		caminhoEspaco, err := p.analisarCaminhoPontilhado()
		if err != nil {
			return nil, err
		}
		arquivo.EspacoAtual = caminhoEspaco
		if p.tokenAtual().Type == lexer.LBRACE {
			p.proximoToken()
			for p.tokenAtual().Type != lexer.RBRACE && !p.chegouAoFim() {
				if err := p.analisarMembroNivelSuperior(arquivo); err != nil {
					return nil, err
				}
			}
			if err := p.verificarProximoToken(lexer.RBRACE); err != nil {
				return nil, err
			}
			return arquivo, nil
		}
	}

	for !p.chegouAoFim() {
		if err := p.analisarMembroNivelSuperior(arquivo); err != nil {
			return nil, err
		}
	}

	return arquivo, nil
}

// analisarMembroNivelSuperior analisa uma única declaração (classe,
// interface, enumeração, função) ou comando de nível superior.
func (p *Parser) analisarMembroNivelSuperior(arquivo *ArquivoFonte) error {
	acesso, estatica, abstrata, _ := p.analisarModificadores()

	switch p.tokenAtual().Type {
	case lexer.CLASSE:
		decl, err := p.analisarClasse(acesso, estatica, abstrata, arquivo.EspacoAtual)
		if err != nil {
			return err
		}
		arquivo.Declaracoes = append(arquivo.Declaracoes, decl)
		return nil
	case lexer.INTERFACE:
		decl, err := p.analisarInterface(acesso, arquivo.EspacoAtual)
		if err != nil {
			return err
		}
		arquivo.Declaracoes = append(arquivo.Declaracoes, decl)
		return nil
	case lexer.ENUMERACAO:
		decl, err := p.analisarEnumeracao(acesso, arquivo.EspacoAtual)
		if err != nil {
			return err
		}
		arquivo.Declaracoes = append(arquivo.Declaracoes, decl)
		return nil
	case lexer.FUNCAO:
		decl, err := p.analisarFuncao(acesso, arquivo.EspacoAtual)
		if err != nil {
			return err
		}
		arquivo.Declaracoes = append(arquivo.Declaracoes, decl)
		return nil
	default:
		comando, err := p.analisarComando()
		if err != nil {
			return err
		}
		arquivo.Instrucoes = append(arquivo.Instrucoes, comando)
		return nil
	}
}

// analisarModificadores consome qualquer combinação de modificadores de
// acesso e flags (estatica/abstrata) que precedem uma declaração ou membro.
func (p *Parser) analisarModificadores() (acesso ModificadorAcesso, estatica, abstrata, redefinivel bool) {
	acesso = ACESSO_PUBLICO
	for {
		switch p.tokenAtual().Type {
		case lexer.PUBLICO:
			acesso = ACESSO_PUBLICO
			p.proximoToken()
		case lexer.PRIVADO:
			acesso = ACESSO_PRIVADO
			p.proximoToken()
		case lexer.PROTEGIDO:
			acesso = ACESSO_PROTEGIDO
			p.proximoToken()
		case lexer.ESTATICA:
			estatica = true
			p.proximoToken()
		case lexer.ABSTRATA:
			abstrata = true
			p.proximoToken()
		case lexer.REDEFINIVEL:
			redefinivel = true
			p.proximoToken()
		default:
			return
		}
	}
}

// analisarCaminhoPontilhado analisa `Ident(.Ident)*`.
func (p *Parser) analisarCaminhoPontilhado() (string, error) {
	tok := p.proximoToken()
	if tok.Type != lexer.IDENTIFICADOR {
		return "", utils.NovoErro("identificador esperado", tok.Position.Line, tok.Position.Column, tok.Value)
	}
	partes := []string{tok.Value}
	for p.tokenAtual().Type == lexer.DOT {
		p.proximoToken()
		parte := p.proximoToken()
		if parte.Type != lexer.IDENTIFICADOR {
			return "", utils.NovoErro("identificador esperado após '.'", parte.Position.Line, parte.Position.Column, parte.Value)
		}
		partes = append(partes, parte.Value)
	}
	return strings.Join(partes, "."), nil
}

// ---------------------------------------------------------------------------
// Tipos
// ---------------------------------------------------------------------------

// ehComecoDeTipo verifica se o token atual pode iniciar uma anotação de tipo.
func (p *Parser) ehComecoDeTipo() bool {
	tok := p.tokenAtual()
	return tok.ETipoPrimitivo() || tok.Type == lexer.IDENTIFICADOR
}

// analisarTipo analisa um nome de tipo primitivo ou de classe/interface/
// enumeração, seguido de zero ou mais sufixos `[]` para arrays.
func (p *Parser) analisarTipo() (*Tipo, error) {
	tok := p.proximoToken()
	var nome string
	switch {
	case tok.ETipoPrimitivo():
		nome = tok.Value
	case tok.Type == lexer.IDENTIFICADOR:
		nome = tok.Value
	default:
		return nil, utils.NovoErro("tipo esperado", tok.Position.Line, tok.Position.Column, tok.Value)
	}
	tipo := TipoSimples(nome)
	for p.tokenAtual().Type == lexer.LBRACKET {
		if p.proximaEhFechamentoDeArray() {
			p.proximoToken() // [
			p.proximoToken() // ]
			tipo = TipoArray(tipo)
		} else {
			break
		}
	}
	return tipo, nil
}

func (p *Parser) proximaEhFechamentoDeArray() bool {
	return p.tokenAtual().Type == lexer.LBRACKET &&
		p.posicaoAtual+1 < len(p.tokens) && p.tokens[p.posicaoAtual+1].Type == lexer.RBRACKET
}

// ---------------------------------------------------------------------------
// Declarações de alto nível
// ---------------------------------------------------------------------------

func (p *Parser) analisarClasse(acesso ModificadorAcesso, estatica, abstrata bool, espaco string) (*ClasseDecl, error) {
	tok := p.proximoToken() // "classe"
	nomeTok := p.proximoToken()
	if nomeTok.Type != lexer.IDENTIFICADOR {
		return nil, utils.NovoErro("nome de classe esperado", nomeTok.Position.Line, nomeTok.Position.Column, nomeTok.Value)
	}

	decl := &ClasseDecl{Nome: nomeTok.Value, Espaco: espaco, Acesso: acesso, Estatica: estatica, Abstrata: abstrata, Token: tok}

	if p.tokenAtual().Type == lexer.COLON {
		p.proximoToken()
		primeiro := true
		for {
			nomeRef, err := p.analisarCaminhoPontilhado()
			if err != nil {
				return nil, err
			}
			if primeiro {
				decl.Base = nomeRef
				primeiro = false
			} else {
				decl.Interfaces = append(decl.Interfaces, nomeRef)
			}
			if p.tokenAtual().Type == lexer.COMMA {
				p.proximoToken()
				continue
			}
			break
		}
	}

	if err := p.verificarProximoToken(lexer.LBRACE); err != nil {
		return nil, err
	}

	for p.tokenAtual().Type != lexer.RBRACE && !p.chegouAoFim() {
		if err := p.analisarMembroDeClasse(decl); err != nil {
			return nil, err
		}
	}
	if err := p.verificarProximoToken(lexer.RBRACE); err != nil {
		return nil, err
	}
	return decl, nil
}

// analisarMembroDeClasse analisa um campo, propriedade, construtor ou
// método dentro do corpo de uma classe.
func (p *Parser) analisarMembroDeClasse(decl *ClasseDecl) error {
	acesso, estatica, abstrata, redefinivel := p.analisarModificadores()
	sobrescreve := false
	if p.tokenAtual().Type == lexer.SOBRESCREVE {
		p.proximoToken()
		sobrescreve = true
	}

	// Construtor: o identificador é exatamente o nome da classe, seguido de '('.
	if p.tokenAtual().Type == lexer.IDENTIFICADOR && p.tokenAtual().Value == decl.Nome &&
		p.posicaoAtual+1 < len(p.tokens) && p.tokens[p.posicaoAtual+1].Type == lexer.LPAREN {
		metodo, err := p.analisarConstrutor(decl.Nome, acesso)
		if err != nil {
			return err
		}
		decl.Metodos = append(decl.Metodos, metodo)
		return nil
	}

	// Forma de retorno prefixada ou implícita: <tipo> nome(...) ou vazio/tipo antes do nome.
	tipoRetorno, err := p.analisarTipo()
	if err != nil {
		return err
	}

	nomeTok := p.proximoToken()
	if nomeTok.Type != lexer.IDENTIFICADOR {
		return utils.NovoErro("nome de membro esperado", nomeTok.Position.Line, nomeTok.Position.Column, nomeTok.Value)
	}

	switch p.tokenAtual().Type {
	case lexer.LPAREN:
		metodo, err := p.analisarAssinaturaEMetodo(nomeTok.Value, tipoRetorno, acesso, estatica, abstrata, redefinivel, sobrescreve, nomeTok)
		if err != nil {
			return err
		}
		decl.Metodos = append(decl.Metodos, metodo)
		return nil
	case lexer.LBRACE:
		prop, err := p.analisarPropriedade(nomeTok.Value, tipoRetorno, acesso, estatica, nomeTok)
		if err != nil {
			return err
		}
		decl.Propriedades = append(decl.Propriedades, prop)
		return nil
	case lexer.ARROW:
		// propriedade de expressão (getter somente): tipo Nome => expr;
		p.proximoToken()
		expr, err := p.analisarExpressao(PRECEDENCIA_NENHUMA)
		if err != nil {
			return err
		}
		if err := p.verificarProximoToken(lexer.SEMICOLON); err != nil {
			return err
		}
		decl.Propriedades = append(decl.Propriedades, &Propriedade{
			Nome: nomeTok.Value, Tipo: tipoRetorno, Acesso: acesso, Estatico: estatica,
			TemObter: true, AcessoObter: acesso,
			CorpoObter: &Bloco{Comandos: []Comando{&ComandoRetorne{Valor: expr, Token: nomeTok}}, Token: nomeTok},
			Token:      nomeTok,
		})
		return nil
	default:
		campo, err := p.analisarCampo(nomeTok.Value, tipoRetorno, acesso, estatica, nomeTok)
		if err != nil {
			return err
		}
		decl.Campos = append(decl.Campos, campo)
		return nil
	}
}

func (p *Parser) analisarCampo(nome string, tipo *Tipo, acesso ModificadorAcesso, estatica bool, tok lexer.Token) (*Campo, error) {
	campo := &Campo{Nome: nome, Tipo: tipo, Acesso: acesso, Estatico: estatica, Token: tok}
	if p.tokenAtual().Type == lexer.ASSIGN {
		p.proximoToken()
		valor, err := p.analisarExpressao(PRECEDENCIA_NENHUMA)
		if err != nil {
			return nil, err
		}
		campo.Inicializador = valor
	}
	if err := p.verificarProximoToken(lexer.SEMICOLON); err != nil {
		return nil, err
	}
	return campo, nil
}

func (p *Parser) analisarPropriedade(nome string, tipo *Tipo, acesso ModificadorAcesso, estatica bool, tok lexer.Token) (*Propriedade, error) {
	if err := p.verificarProximoToken(lexer.LBRACE); err != nil {
		return nil, err
	}
	prop := &Propriedade{Nome: nome, Tipo: tipo, Acesso: acesso, Estatico: estatica, Token: tok}
	autoSomente := true

	for p.tokenAtual().Type != lexer.RBRACE && !p.chegouAoFim() {
		acessorAcesso, _, _, _ := p.analisarModificadores()
		switch p.tokenAtual().Type {
		case lexer.OBTER:
			p.proximoToken()
			prop.TemObter = true
			prop.AcessoObter = acessorAcesso
			if acessorAcesso == ACESSO_PUBLICO {
				prop.AcessoObter = acesso
			}
			if p.tokenAtual().Type == lexer.LBRACE {
				autoSomente = false
				bloco, err := p.analisarBloco()
				if err != nil {
					return nil, err
				}
				prop.CorpoObter = bloco
			} else {
				if err := p.verificarProximoToken(lexer.SEMICOLON); err != nil {
					return nil, err
				}
			}
		case lexer.DEFINIR:
			p.proximoToken()
			prop.TemDefinir = true
			prop.AcessoDefinir = acessorAcesso
			if acessorAcesso == ACESSO_PUBLICO {
				prop.AcessoDefinir = acesso
			}
			if p.tokenAtual().Type == lexer.LBRACE {
				autoSomente = false
				bloco, err := p.analisarBloco()
				if err != nil {
					return nil, err
				}
				prop.CorpoDefinir = bloco
			} else {
				if err := p.verificarProximoToken(lexer.SEMICOLON); err != nil {
					return nil, err
				}
			}
		default:
			return nil, utils.NovoErro("'obter' ou 'definir' esperado", p.tokenAtual().Position.Line, p.tokenAtual().Position.Column, p.tokenAtual().Value)
		}
	}
	if err := p.verificarProximoToken(lexer.RBRACE); err != nil {
		return nil, err
	}
	prop.AutoPropriedade = autoSomente

	if p.tokenAtual().Type == lexer.ASSIGN {
		p.proximoToken()
		valor, err := p.analisarExpressao(PRECEDENCIA_NENHUMA)
		if err != nil {
			return nil, err
		}
		prop.Inicializador = valor
		if err := p.verificarProximoToken(lexer.SEMICOLON); err != nil {
			return nil, err
		}
	}
	return prop, nil
}

func (p *Parser) analisarConstrutor(nomeClasse string, acesso ModificadorAcesso) (*Metodo, error) {
	tok := p.proximoToken() // nome da classe
	params, err := p.analisarParametros()
	if err != nil {
		return nil, err
	}
	metodo := &Metodo{Nome: nomeClasse, Parametros: params, Construtor: true, Acesso: acesso, Token: tok}

	if p.tokenAtual().Type == lexer.COLON {
		p.proximoToken()
		if err := p.verificarProximoToken(lexer.BASE); err != nil {
			return nil, err
		}
		args, err := p.analisarListaDeArgumentos()
		if err != nil {
			return nil, err
		}
		metodo.BaseArgs = args
		metodo.TemBaseCall = true
	}

	corpo, err := p.analisarBloco()
	if err != nil {
		return nil, err
	}
	metodo.Corpo = corpo
	return metodo, nil
}

func (p *Parser) analisarAssinaturaEMetodo(nome string, tipoRetorno *Tipo, acesso ModificadorAcesso, estatica, abstrata, redefinivel, sobrescreve bool, tok lexer.Token) (*Metodo, error) {
	params, err := p.analisarParametros()
	if err != nil {
		return nil, err
	}
	metodo := &Metodo{
		Nome: nome, Parametros: params, TipoRetorno: tipoRetorno,
		Acesso: acesso, Estatico: estatica, Abstrato: abstrata,
		Redefinivel: redefinivel, Sobrescreve: sobrescreve, Token: tok,
	}
	if abstrata {
		if err := p.verificarProximoToken(lexer.SEMICOLON); err != nil {
			return nil, err
		}
		return metodo, nil
	}
	corpo, err := p.analisarBloco()
	if err != nil {
		return nil, err
	}
	metodo.Corpo = corpo
	return metodo, nil
}

func (p *Parser) analisarParametros() ([]Parametro, error) {
	if err := p.verificarProximoToken(lexer.LPAREN); err != nil {
		return nil, err
	}
	var params []Parametro
	viuOpcional := false
	for p.tokenAtual().Type != lexer.RPAREN {
		tipo, err := p.analisarTipo()
		if err != nil {
			return nil, err
		}
		nomeTok := p.proximoToken()
		if nomeTok.Type != lexer.IDENTIFICADOR {
			return nil, utils.NovoErro("nome de parâmetro esperado", nomeTok.Position.Line, nomeTok.Position.Column, nomeTok.Value)
		}
		param := Parametro{Nome: nomeTok.Value, Tipo: tipo}
		if p.tokenAtual().Type == lexer.ASSIGN {
			p.proximoToken()
			valorPadrao, err := p.analisarExpressao(PRECEDENCIA_NENHUMA)
			if err != nil {
				return nil, err
			}
			param.PadraoValor = valorPadrao
			viuOpcional = true
		} else if viuOpcional {
			return nil, utils.NovoErro("parâmetro obrigatório após parâmetro opcional",
				nomeTok.Position.Line, nomeTok.Position.Column,
				"uma vez que um parâmetro tem valor padrão, todos os seguintes devem ter")
		}
		params = append(params, param)
		if p.tokenAtual().Type == lexer.COMMA {
			p.proximoToken()
			continue
		}
		break
	}
	if err := p.verificarProximoToken(lexer.RPAREN); err != nil {
		return nil, err
	}
	return params, nil
}

func (p *Parser) analisarInterface(acesso ModificadorAcesso, espaco string) (*InterfaceDecl, error) {
	tok := p.proximoToken() // "interface"
	nomeTok := p.proximoToken()
	if nomeTok.Type != lexer.IDENTIFICADOR {
		return nil, utils.NovoErro("nome de interface esperado", nomeTok.Position.Line, nomeTok.Position.Column, nomeTok.Value)
	}
	decl := &InterfaceDecl{Nome: nomeTok.Value, Espaco: espaco, Acesso: acesso, Token: tok}

	if err := p.verificarProximoToken(lexer.LBRACE); err != nil {
		return nil, err
	}
	for p.tokenAtual().Type != lexer.RBRACE && !p.chegouAoFim() {
		tipoRetorno, err := p.analisarTipo()
		if err != nil {
			return nil, err
		}
		metodoNomeTok := p.proximoToken()
		if metodoNomeTok.Type != lexer.IDENTIFICADOR {
			return nil, utils.NovoErro("nome de método esperado", metodoNomeTok.Position.Line, metodoNomeTok.Position.Column, metodoNomeTok.Value)
		}
		params, err := p.analisarParametros()
		if err != nil {
			return nil, err
		}
		if err := p.verificarProximoToken(lexer.SEMICOLON); err != nil {
			return nil, err
		}
		decl.Metodos = append(decl.Metodos, AssinaturaInterface{
			Nome: metodoNomeTok.Value, Parametros: params, TipoRetorno: tipoRetorno, Token: metodoNomeTok,
		})
	}
	if err := p.verificarProximoToken(lexer.RBRACE); err != nil {
		return nil, err
	}
	return decl, nil
}

func (p *Parser) analisarEnumeracao(acesso ModificadorAcesso, espaco string) (*EnumeracaoDecl, error) {
	tok := p.proximoToken() // "enumeracao"
	nomeTok := p.proximoToken()
	if nomeTok.Type != lexer.IDENTIFICADOR {
		return nil, utils.NovoErro("nome de enumeração esperado", nomeTok.Position.Line, nomeTok.Position.Column, nomeTok.Value)
	}
	decl := &EnumeracaoDecl{Nome: nomeTok.Value, Espaco: espaco, Acesso: acesso, Token: tok}
	if err := p.verificarProximoToken(lexer.LBRACE); err != nil {
		return nil, err
	}
	for p.tokenAtual().Type != lexer.RBRACE {
		membroTok := p.proximoToken()
		if membroTok.Type != lexer.IDENTIFICADOR {
			return nil, utils.NovoErro("membro de enumeração esperado", membroTok.Position.Line, membroTok.Position.Column, membroTok.Value)
		}
		decl.Membros = append(decl.Membros, membroTok.Value)
		if p.tokenAtual().Type == lexer.COMMA {
			p.proximoToken()
			continue
		}
		break
	}
	if err := p.verificarProximoToken(lexer.RBRACE); err != nil {
		return nil, err
	}
	return decl, nil
}

// analisarFuncao analisa uma declaração de função livre, aceitando as três
// formas de posição de tipo de retorno equivalentes (implícita, seta,
// prefixada), canonicalizadas em uma única forma de AST.
func (p *Parser) analisarFuncao(acesso ModificadorAcesso, espaco string) (*FuncaoDecl, error) {
	tok := p.proximoToken() // "funcao"

	// Forma prefixada: `funcao T nome(...)` — o próximo token é um tipo
	// seguido de um identificador antes do '('. Distinguimos olhando se,
	// após consumir um identificador, vem outro identificador (nome da
	// função) em vez de '('.
	var nome string
	var tipoRetorno *Tipo
	salvaPos := p.posicaoAtual
	if p.ehComecoDeTipo() {
		possivelTipo, err := p.analisarTipo()
		if err == nil && p.tokenAtual().Type == lexer.IDENTIFICADOR {
			tipoRetorno = possivelTipo
			nomeTok := p.proximoToken()
			nome = nomeTok.Value
		} else {
			p.posicaoAtual = salvaPos
		}
	}
	if nome == "" {
		nomeTok := p.proximoToken()
		if nomeTok.Type != lexer.IDENTIFICADOR {
			return nil, utils.NovoErro("nome de função esperado", nomeTok.Position.Line, nomeTok.Position.Column, nomeTok.Value)
		}
		nome = nomeTok.Value
	}

	params, err := p.analisarParametros()
	if err != nil {
		return nil, err
	}

	if tipoRetorno == nil {
		if p.tokenAtual().Type == lexer.ARROW {
			p.proximoToken()
			tipoRetorno, err = p.analisarTipo()
			if err != nil {
				return nil, err
			}
		} else {
			tipoRetorno = TipoSimples("vazio")
		}
	}

	corpo, err := p.analisarBloco()
	if err != nil {
		return nil, err
	}

	return &FuncaoDecl{Nome: nome, Espaco: espaco, Acesso: acesso, Parametros: params, TipoRetorno: tipoRetorno, Corpo: corpo, Token: tok}, nil
}

// ---------------------------------------------------------------------------
// Comandos
// ---------------------------------------------------------------------------

func (p *Parser) analisarBloco() (*Bloco, error) {
	tokenInicio := p.tokenAtual()
	if err := p.verificarProximoToken(lexer.LBRACE); err != nil {
		return nil, err
	}
	var comandos []Comando
	for p.tokenAtual().Type != lexer.RBRACE && !p.chegouAoFim() {
		comando, err := p.analisarComando()
		if err != nil {
			return nil, err
		}
		comandos = append(comandos, comando)
	}
	if err := p.verificarProximoToken(lexer.RBRACE); err != nil {
		return nil, err
	}
	return &Bloco{Comandos: comandos, Token: tokenInicio}, nil
}

// analisarComando analisa um único comando de acordo com o token atual.
func (p *Parser) analisarComando() (Comando, error) {
	switch p.tokenAtual().Type {
	case lexer.SE:
		return p.analisarComandoSe()
	case lexer.ENQUANTO:
		return p.analisarComandoEnquanto()
	case lexer.PARA:
		return p.analisarComandoPara()
	case lexer.RETORNE:
		return p.analisarComandoRetorne()
	case lexer.IMPRIMA:
		return p.analisarComandoImprima()
	case lexer.VAR:
		return p.analisarDeclaracaoVarInferida()
	case lexer.LBRACE:
		return p.analisarBloco()
	default:
		if p.ehComecoDeTipo() && p.proximaEhNomeDeVariavel() {
			return p.analisarDeclaracaoVarTipada()
		}
		return p.analisarComandoExpressaoOuAtribuicao()
	}
}

// proximaEhNomeDeVariavel verifica — sem consumir — se o token atual
// começa um tipo seguido de um identificador (declaração tipada), em
// contraste com uma expressão que apenas referencia um identificador.
func (p *Parser) proximaEhNomeDeVariavel() bool {
	salvaPos := p.posicaoAtual
	defer func() { p.posicaoAtual = salvaPos }()
	if !p.ehComecoDeTipo() {
		return false
	}
	_, err := p.analisarTipo()
	if err != nil {
		return false
	}
	return p.tokenAtual().Type == lexer.IDENTIFICADOR
}

func (p *Parser) analisarDeclaracaoVarInferida() (Comando, error) {
	tok := p.proximoToken() // "var"
	nomeTok := p.proximoToken()
	if nomeTok.Type != lexer.IDENTIFICADOR {
		return nil, utils.NovoErro("nome de variável esperado", nomeTok.Position.Line, nomeTok.Position.Column, nomeTok.Value)
	}
	if err := p.verificarProximoToken(lexer.ASSIGN); err != nil {
		return nil, err
	}
	valor, err := p.analisarExpressao(PRECEDENCIA_NENHUMA)
	if err != nil {
		return nil, err
	}
	if err := p.verificarProximoToken(lexer.SEMICOLON); err != nil {
		return nil, err
	}
	return &DeclaracaoVar{Nome: nomeTok.Value, Valor: valor, Token: tok}, nil
}

func (p *Parser) analisarDeclaracaoVarTipada() (Comando, error) {
	tok := p.tokenAtual()
	tipo, err := p.analisarTipo()
	if err != nil {
		return nil, err
	}
	nomeTok := p.proximoToken()
	if err := p.verificarProximoToken(lexer.ASSIGN); err != nil {
		return nil, err
	}
	valor, err := p.analisarExpressao(PRECEDENCIA_NENHUMA)
	if err != nil {
		return nil, err
	}
	if err := p.verificarProximoToken(lexer.SEMICOLON); err != nil {
		return nil, err
	}
	return &DeclaracaoVar{Nome: nomeTok.Value, TipoDeclarado: tipo, Valor: valor, Token: tok}, nil
}

func (p *Parser) analisarComandoImprima() (Comando, error) {
	tok := p.proximoToken() // "imprima"
	if err := p.verificarProximoToken(lexer.LPAREN); err != nil {
		return nil, err
	}
	valor, err := p.analisarExpressao(PRECEDENCIA_NENHUMA)
	if err != nil {
		return nil, err
	}
	if err := p.verificarProximoToken(lexer.RPAREN); err != nil {
		return nil, err
	}
	if err := p.verificarProximoToken(lexer.SEMICOLON); err != nil {
		return nil, err
	}
	return &ComandoImprima{Valor: valor, Token: tok}, nil
}

// analisarComandoSe analisa `se (cond) { ... } senão { ... }`; o `senão`
// pendente se liga ao `se` mais interno por construção recursiva descendente.
func (p *Parser) analisarComandoSe() (Comando, error) {
	tok := p.proximoToken() // "se"
	if err := p.verificarProximoToken(lexer.LPAREN); err != nil {
		return nil, err
	}
	condicao, err := p.analisarExpressao(PRECEDENCIA_NENHUMA)
	if err != nil {
		return nil, err
	}
	if err := p.verificarProximoToken(lexer.RPAREN); err != nil {
		return nil, err
	}
	blocoSe, err := p.analisarBloco()
	if err != nil {
		return nil, err
	}
	var blocoSenao *Bloco
	if p.tokenAtual().Type == lexer.SENAO {
		p.proximoToken()
		if p.tokenAtual().Type == lexer.SE {
			aninhado, err := p.analisarComandoSe()
			if err != nil {
				return nil, err
			}
			blocoSenao = &Bloco{Comandos: []Comando{aninhado}, Token: p.tokenAtual()}
		} else {
			blocoSenao, err = p.analisarBloco()
			if err != nil {
				return nil, err
			}
		}
	}
	return &ComandoSe{Condicao: condicao, BlocoSe: blocoSe, BlocoSenao: blocoSenao, Token: tok}, nil
}

func (p *Parser) analisarComandoEnquanto() (Comando, error) {
	tok := p.proximoToken() // "enquanto"
	if err := p.verificarProximoToken(lexer.LPAREN); err != nil {
		return nil, err
	}
	condicao, err := p.analisarExpressao(PRECEDENCIA_NENHUMA)
	if err != nil {
		return nil, err
	}
	if err := p.verificarProximoToken(lexer.RPAREN); err != nil {
		return nil, err
	}
	corpo, err := p.analisarBloco()
	if err != nil {
		return nil, err
	}
	return &ComandoEnquanto{Condicao: condicao, Corpo: corpo, Token: tok}, nil
}

// analisarComandoPara analisa `para (init; cond; pos) { ... }`.
func (p *Parser) analisarComandoPara() (Comando, error) {
	tok := p.proximoToken() // "para"
	if err := p.verificarProximoToken(lexer.LPAREN); err != nil {
		return nil, err
	}

	var inicializador Comando
	if p.tokenAtual().Type != lexer.SEMICOLON {
		var err error
		if p.tokenAtual().Type == lexer.VAR {
			inicializador, err = p.analisarDeclaracaoVarInferidaSemPontoVirgula()
		} else if p.ehComecoDeTipo() && p.proximaEhNomeDeVariavel() {
			inicializador, err = p.analisarDeclaracaoVarTipadaSemPontoVirgula()
		} else {
			inicializador, err = p.analisarAtribuicaoSemPontoVirgula()
		}
		if err != nil {
			return nil, err
		}
	}
	if err := p.verificarProximoToken(lexer.SEMICOLON); err != nil {
		return nil, err
	}

	var condicao Expressao
	if p.tokenAtual().Type != lexer.SEMICOLON {
		var err error
		condicao, err = p.analisarExpressao(PRECEDENCIA_NENHUMA)
		if err != nil {
			return nil, err
		}
	}
	if err := p.verificarProximoToken(lexer.SEMICOLON); err != nil {
		return nil, err
	}

	var passo Comando
	if p.tokenAtual().Type != lexer.RPAREN {
		var err error
		passo, err = p.analisarAtribuicaoSemPontoVirgula()
		if err != nil {
			return nil, err
		}
	}
	if err := p.verificarProximoToken(lexer.RPAREN); err != nil {
		return nil, err
	}

	corpo, err := p.analisarBloco()
	if err != nil {
		return nil, err
	}
	return &ComandoPara{Inicializador: inicializador, Condicao: condicao, Passo: passo, Corpo: corpo, Token: tok}, nil
}

func (p *Parser) analisarDeclaracaoVarInferidaSemPontoVirgula() (Comando, error) {
	tok := p.proximoToken() // "var"
	nomeTok := p.proximoToken()
	if err := p.verificarProximoToken(lexer.ASSIGN); err != nil {
		return nil, err
	}
	valor, err := p.analisarExpressao(PRECEDENCIA_NENHUMA)
	if err != nil {
		return nil, err
	}
	return &DeclaracaoVar{Nome: nomeTok.Value, Valor: valor, Token: tok}, nil
}

func (p *Parser) analisarDeclaracaoVarTipadaSemPontoVirgula() (Comando, error) {
	tok := p.tokenAtual()
	tipo, err := p.analisarTipo()
	if err != nil {
		return nil, err
	}
	nomeTok := p.proximoToken()
	if err := p.verificarProximoToken(lexer.ASSIGN); err != nil {
		return nil, err
	}
	valor, err := p.analisarExpressao(PRECEDENCIA_NENHUMA)
	if err != nil {
		return nil, err
	}
	return &DeclaracaoVar{Nome: nomeTok.Value, TipoDeclarado: tipo, Valor: valor, Token: tok}, nil
}

func (p *Parser) analisarAtribuicaoSemPontoVirgula() (Comando, error) {
	tokenInicio := p.tokenAtual()
	alvo, err := p.analisarExpressao(PRECEDENCIA_NENHUMA)
	if err != nil {
		return nil, err
	}
	if p.tokenAtual().Type == lexer.ASSIGN {
		tok := p.proximoToken()
		valor, err := p.analisarExpressao(PRECEDENCIA_NENHUMA)
		if err != nil {
			return nil, err
		}
		return &Atribuicao{Alvo: alvo, Valor: valor, Token: tok}, nil
	}
	return &ComandoExpressao{Expr: alvo, Token: tokenInicio}, nil
}

func (p *Parser) analisarComandoRetorne() (Comando, error) {
	tok := p.proximoToken() // "retorne"
	if p.tokenAtual().Type == lexer.SEMICOLON {
		p.proximoToken()
		return &ComandoRetorne{Token: tok}, nil
	}
	valor, err := p.analisarExpressao(PRECEDENCIA_NENHUMA)
	if err != nil {
		return nil, err
	}
	if err := p.verificarProximoToken(lexer.SEMICOLON); err != nil {
		return nil, err
	}
	return &ComandoRetorne{Valor: valor, Token: tok}, nil
}

// analisarComandoExpressaoOuAtribuicao cobre atribuições (`alvo = valor;`,
// incluindo alvos de campo/propriedade/índice) e expressões usadas como
// comando (ex. uma chamada de método).
func (p *Parser) analisarComandoExpressaoOuAtribuicao() (Comando, error) {
	tokenInicio := p.tokenAtual()
	expr, err := p.analisarExpressao(PRECEDENCIA_NENHUMA)
	if err != nil {
		return nil, err
	}
	if p.tokenAtual().Type == lexer.ASSIGN {
		tok := p.proximoToken()
		valor, err := p.analisarExpressao(PRECEDENCIA_NENHUMA)
		if err != nil {
			return nil, err
		}
		if err := p.verificarProximoToken(lexer.SEMICOLON); err != nil {
			return nil, err
		}
		return &Atribuicao{Alvo: expr, Valor: valor, Token: tok}, nil
	}
	if err := p.verificarProximoToken(lexer.SEMICOLON); err != nil {
		return nil, err
	}
	return &ComandoExpressao{Expr: expr, Token: tokenInicio}, nil
}

// ---------------------------------------------------------------------------
// Expressões — análise de precedência (Pratt)
// ---------------------------------------------------------------------------

func (p *Parser) obterPrecedencia(tipo lexer.TokenType) Precedencia {
	switch tipo {
	case lexer.OR:
		return PRECEDENCIA_OU
	case lexer.AND:
		return PRECEDENCIA_E
	case lexer.EQUAL, lexer.NOT_EQUAL:
		return PRECEDENCIA_IGUALDADE
	case lexer.LESS, lexer.LESS_EQUAL, lexer.GREATER, lexer.GREATER_EQUAL:
		return PRECEDENCIA_RELACIONAL
	case lexer.PLUS, lexer.MINUS:
		return PRECEDENCIA_ADITIVA
	case lexer.MULTIPLY, lexer.DIVIDE, lexer.MODULO:
		return PRECEDENCIA_MULTIPLICATIVA
	default:
		return PRECEDENCIA_NENHUMA
	}
}

func (p *Parser) analisarExpressao(precedenciaMinima Precedencia) (Expressao, error) {
	esquerda, err := p.analisarUnaria()
	if err != nil {
		return nil, err
	}

	for {
		tok := p.tokenAtual()
		precedenciaAtual := p.obterPrecedencia(tok.Type)
		if precedenciaAtual == PRECEDENCIA_NENHUMA || precedenciaAtual < precedenciaMinima {
			break
		}
		operadorTok := p.proximoToken()
		operador, err := p.tokenParaOperadorBinario(operadorTok)
		if err != nil {
			return nil, err
		}
		direita, err := p.analisarExpressao(precedenciaAtual + 1)
		if err != nil {
			return nil, err
		}
		esquerda = &OperacaoBinaria{Esquerda: esquerda, Operador: operador, Direita: direita, Token: operadorTok}
	}
	return esquerda, nil
}

func (p *Parser) tokenParaOperadorBinario(tok lexer.Token) (TipoOperadorBinario, error) {
	switch tok.Type {
	case lexer.PLUS:
		return OP_SOMA, nil
	case lexer.MINUS:
		return OP_SUBTRACAO, nil
	case lexer.MULTIPLY:
		return OP_MULTIPLICACAO, nil
	case lexer.DIVIDE:
		return OP_DIVISAO, nil
	case lexer.MODULO:
		return OP_MODULO, nil
	case lexer.EQUAL:
		return OP_IGUAL, nil
	case lexer.NOT_EQUAL:
		return OP_DIFERENTE, nil
	case lexer.LESS:
		return OP_MENOR, nil
	case lexer.LESS_EQUAL:
		return OP_MENOR_IGUAL, nil
	case lexer.GREATER:
		return OP_MAIOR, nil
	case lexer.GREATER_EQUAL:
		return OP_MAIOR_IGUAL, nil
	case lexer.AND:
		return OP_E, nil
	case lexer.OR:
		return OP_OU, nil
	default:
		return 0, utils.NovoErro("operador binário inválido", tok.Position.Line, tok.Position.Column, tok.Value)
	}
}

// analisarUnaria cobre `-x`, `!x`, e delega a átomos/pós-fixos.
func (p *Parser) analisarUnaria() (Expressao, error) {
	tok := p.tokenAtual()
	if tok.Type == lexer.MINUS {
		p.proximoToken()
		operando, err := p.analisarUnaria()
		if err != nil {
			return nil, err
		}
		return &OperacaoUnaria{Operador: OP_NEGACAO_ARIT, Operando: operando, Token: tok}, nil
	}
	if tok.Type == lexer.NOT {
		p.proximoToken()
		operando, err := p.analisarUnaria()
		if err != nil {
			return nil, err
		}
		return &OperacaoUnaria{Operador: OP_NEGACAO_LOGICA, Operando: operando, Token: tok}, nil
	}
	return p.analisarPosfixo()
}

// analisarPosfixo analisa um átomo seguido de zero ou mais sufixos
// `.membro`, `.metodo(args)`, `[indice]`.
func (p *Parser) analisarPosfixo() (Expressao, error) {
	expr, err := p.analisarAtomo()
	if err != nil {
		return nil, err
	}
	for {
		switch p.tokenAtual().Type {
		case lexer.DOT:
			tok := p.proximoToken()
			nomeTok := p.proximoToken()
			if nomeTok.Type != lexer.IDENTIFICADOR {
				return nil, utils.NovoErro("nome de membro esperado após '.'", nomeTok.Position.Line, nomeTok.Position.Column, nomeTok.Value)
			}
			if p.tokenAtual().Type == lexer.LPAREN {
				args, err := p.analisarListaDeArgumentos()
				if err != nil {
					return nil, err
				}
				expr = &ChamadaMetodo{Alvo: expr, Nome: nomeTok.Value, Argumentos: args, Token: tok}
			} else {
				expr = &AcessoMembro{Alvo: expr, Nome: nomeTok.Value, Token: tok}
			}
		case lexer.LBRACKET:
			tok := p.proximoToken()
			indice, err := p.analisarExpressao(PRECEDENCIA_NENHUMA)
			if err != nil {
				return nil, err
			}
			if err := p.verificarProximoToken(lexer.RBRACKET); err != nil {
				return nil, err
			}
			expr = &Indexacao{Alvo: expr, Indice: indice, Token: tok}
		default:
			return expr, nil
		}
	}
}

func (p *Parser) analisarListaDeArgumentos() ([]Expressao, error) {
	if err := p.verificarProximoToken(lexer.LPAREN); err != nil {
		return nil, err
	}
	var args []Expressao
	for p.tokenAtual().Type != lexer.RPAREN {
		arg, err := p.analisarExpressao(PRECEDENCIA_NENHUMA)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if p.tokenAtual().Type == lexer.COMMA {
			p.proximoToken()
			continue
		}
		break
	}
	if err := p.verificarProximoToken(lexer.RPAREN); err != nil {
		return nil, err
	}
	return args, nil
}

// analisarAtomo analisa literais, identificadores, `este`, `novo`, arrays,
// e expressões parentizadas.
func (p *Parser) analisarAtomo() (Expressao, error) {
	tok := p.proximoToken()

	switch tok.Type {
	case lexer.NUMERO_INTEIRO:
		valor, err := strconv.ParseInt(tok.Value, 10, 64)
		if err != nil {
			return nil, utils.NovoErro("inteiro inválido", tok.Position.Line, tok.Position.Column, err.Error())
		}
		return &LiteralInteiro{Valor: valor, Token: tok}, nil

	case lexer.NUMERO_DECIMAL:
		escalado, err := escalarLiteralDecimal(tok.Value)
		if err != nil {
			return nil, utils.NovoErro("decimal inválido", tok.Position.Line, tok.Position.Column, err.Error())
		}
		return &LiteralDecimal{Escalado: escalado, Token: tok}, nil

	case lexer.TEXTO:
		return &LiteralTexto{Valor: tok.Value, Token: tok}, nil

	case lexer.TEXTO_INTERPOLADO:
		return p.expandirInterpolacao(tok)

	case lexer.VERDADEIRO:
		return &LiteralBooleano{Valor: true, Token: tok}, nil
	case lexer.FALSO:
		return &LiteralBooleano{Valor: false, Token: tok}, nil

	case lexer.ESTE:
		return &Este{Token: tok}, nil

	case lexer.NOVO:
		return p.analisarNovaInstancia(tok)

	case lexer.IDENTIFICADOR:
		if p.tokenAtual().Type == lexer.LPAREN {
			args, err := p.analisarListaDeArgumentos()
			if err != nil {
				return nil, err
			}
			return &ChamadaFuncao{Nome: tok.Value, Argumentos: args, Token: tok}, nil
		}
		return &Identificador{Nome: tok.Value, Token: tok}, nil

	case lexer.LBRACKET:
		var elementos []Expressao
		for p.tokenAtual().Type != lexer.RBRACKET {
			elem, err := p.analisarExpressao(PRECEDENCIA_NENHUMA)
			if err != nil {
				return nil, err
			}
			elementos = append(elementos, elem)
			if p.tokenAtual().Type == lexer.COMMA {
				p.proximoToken()
				continue
			}
			break
		}
		if err := p.verificarProximoToken(lexer.RBRACKET); err != nil {
			return nil, err
		}
		return &LiteralArray{Elementos: elementos, Token: tok}, nil

	case lexer.LPAREN:
		expr, err := p.analisarExpressao(PRECEDENCIA_NENHUMA)
		if err != nil {
			return nil, err
		}
		if err := p.verificarProximoToken(lexer.RPAREN); err != nil {
			return nil, err
		}
		return expr, nil

	default:
		return nil, utils.NovoErro("expressão inválida", tok.Position.Line, tok.Position.Column,
			fmt.Sprintf("token inesperado '%s'", tok.Value))
	}
}

func (p *Parser) analisarNovaInstancia(tok lexer.Token) (Expressao, error) {
	nomeRef, err := p.analisarCaminhoPontilhado()
	if err != nil {
		return nil, err
	}
	args, err := p.analisarListaDeArgumentos()
	if err != nil {
		return nil, err
	}
	return &NovaInstancia{ClasseNome: nomeRef, Argumentos: args, Token: tok}, nil
}

// escalarLiteralDecimal converte o lexema de um NUMERO_DECIMAL ("3.5") para
// um inteiro escalado por 10000 (4 dígitos implícitos de precisão).
func escalarLiteralDecimal(lexema string) (int64, error) {
	partes := strings.SplitN(lexema, ".", 2)
	inteiraStr := partes[0]
	fracStr := ""
	if len(partes) == 2 {
		fracStr = partes[1]
	}
	for len(fracStr) < 4 {
		fracStr += "0"
	}
	fracStr = fracStr[:4]
	inteira, err := strconv.ParseInt(inteiraStr, 10, 64)
	if err != nil {
		return 0, err
	}
	frac, err := strconv.ParseInt(fracStr, 10, 64)
	if err != nil {
		return 0, err
	}
	return inteira*10000 + frac, nil
}

// expandirInterpolacao re-analisa o corpo cru de um TEXTO_INTERPOLADO,
// dividindo-o em spans literais e expressões `{...}` (§4.3).
func (p *Parser) expandirInterpolacao(tok lexer.Token) (Expressao, error) {
	partes, err := dividirPartesInterpoladas(tok.Value, tok.Position)
	if err != nil {
		return nil, err
	}
	return &TextoInterpolado{Partes: partes, Token: tok}, nil
}

func dividirPartesInterpoladas(corpo string, pos lexer.Position) ([]ParteInterpolada, error) {
	var partes []ParteInterpolada
	var literal strings.Builder
	i := 0
	for i < len(corpo) {
		c := corpo[i]
		if c == '{' {
			if literal.Len() > 0 {
				partes = append(partes, ParteInterpolada{Literal: literal.String()})
				literal.Reset()
			}
			profundidade := 1
			j := i + 1
			for j < len(corpo) && profundidade > 0 {
				if corpo[j] == '{' {
					profundidade++
				} else if corpo[j] == '}' {
					profundidade--
					if profundidade == 0 {
						break
					}
				}
				j++
			}
			if profundidade != 0 {
				return nil, utils.NovoErro("expressão de interpolação não fechada", pos.Line, pos.Column, corpo)
			}
			subExpressao := corpo[i+1 : j]
			subLexer := lexerNovoParaSubexpressao(subExpressao)
			tokens, err := subLexer.Tokenizar()
			if err != nil {
				return nil, err
			}
			subParser := NovoParser(tokens)
			expr, err := subParser.analisarExpressao(PRECEDENCIA_NENHUMA)
			if err != nil {
				return nil, err
			}
			partes = append(partes, ParteInterpolada{Expr: expr})
			i = j + 1
		} else {
			literal.WriteByte(c)
			i++
		}
	}
	if literal.Len() > 0 {
		partes = append(partes, ParteInterpolada{Literal: literal.String()})
	}
	return partes, nil
}

func lexerNovoParaSubexpressao(texto string) *lexer.Lexer {
	return lexer.NovoLexer(texto)
}

// ---------------------------------------------------------------------------
// Utilitários de navegação por tokens
// ---------------------------------------------------------------------------

func (p *Parser) proximoToken() lexer.Token {
	if p.chegouAoFim() {
		return lexer.NovoToken(lexer.EOF, "", lexer.NovaPosicao(0, 0, 0))
	}
	token := p.tokens[p.posicaoAtual]
	p.posicaoAtual++
	return token
}

func (p *Parser) tokenAtual() lexer.Token {
	if p.chegouAoFim() {
		return lexer.NovoToken(lexer.EOF, "", lexer.NovaPosicao(0, 0, 0))
	}
	return p.tokens[p.posicaoAtual]
}

func (p *Parser) verificarProximoToken(tipoEsperado lexer.TokenType) error {
	token := p.proximoToken()
	if token.Type != tipoEsperado {
		msg := fmt.Sprintf("esperado %s, encontrado %s", tipoEsperado, token.Type)
		if token.Type == lexer.EOF {
			msg += " — possível bloco não fechado"
		}
		return utils.NovoErro("token inesperado", token.Position.Line, token.Position.Column, msg)
	}
	return nil
}

func (p *Parser) chegouAoFim() bool {
	return p.posicaoAtual >= len(p.tokens) ||
		(p.posicaoAtual < len(p.tokens) && p.tokens[p.posicaoAtual].Type == lexer.EOF)
}
