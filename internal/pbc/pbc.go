// Package pbc lê e escreve o formato binário de módulo `.pbc`: um
// contêiner versionado, prefixado por tamanho, portável entre máquinas
// de mesma ordem de bytes. A codificação de cada seção usa CBOR
// canônico (`cbor.CanonicalEncOptions().EncMode()` mais
// `Marshal`/`Unmarshal` por tipo de registro).
package pbc

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"

	"github.com/lucasbrandao/pr/internal/bytecode"
)

// Magic identifica um arquivo `.pbc` válido; Versao é a versão de
// formato atual suportada por este leitor/escritor.
const (
	Magic  = "PBC1"
	Versao = uint16(1)
)

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("pbc: falha ao criar modo de codificação CBOR: %v", err))
	}
	cborEncMode = em
}

// registroMetodo espelha bytecode.CodeBlock para codificação CBOR.
type registroMetodo struct {
	CodeID      string
	NumLocais   int
	NumParam    int
	TemEste     bool
	NomesLocais []string
	Instrucoes  []bytecode.Instrucao
}

// secoes é a forma serializada do módulo: as seções do formato descrito
// em §4.7 reunidas em um único valor CBOR, codificado de uma vez.
type secoes struct {
	Constantes   []bytecode.Constante
	Classes      []bytecode.Classe
	Metodos      []registroMetodo
	InitEstatico registroMetodo
	PontoEntrada registroMetodo
}

func paraRegistro(cb bytecode.CodeBlock) registroMetodo {
	return registroMetodo{
		CodeID:      cb.CodeID,
		NumLocais:   cb.NumLocais,
		NumParam:    cb.NumParam,
		TemEste:     cb.TemEste,
		NomesLocais: cb.NomesLocais,
		Instrucoes:  cb.Instrucoes,
	}
}

func deRegistro(r registroMetodo) bytecode.CodeBlock {
	return bytecode.CodeBlock{
		CodeID:      r.CodeID,
		NumLocais:   r.NumLocais,
		NumParam:    r.NumParam,
		TemEste:     r.TemEste,
		NomesLocais: r.NomesLocais,
		Instrucoes:  r.Instrucoes,
	}
}

// Escrever grava `m` no formato `.pbc`: magic, versão, o tamanho em bytes
// (u32) do corpo e o corpo — um único valor CBOR canônico com todas as
// seções do módulo, lido e decodificado de uma vez por Ler.
func Escrever(w io.Writer, m *bytecode.Modulo) error {
	if _, err := w.Write([]byte(Magic)); err != nil {
		return fmt.Errorf("pbc: escrever magic: %w", err)
	}
	if err := binary.Write(w, binary.BigEndian, Versao); err != nil {
		return fmt.Errorf("pbc: escrever versão: %w", err)
	}

	s := secoes{
		Constantes: m.Constantes,
		Classes:    m.Classes,
		Metodos:    make([]registroMetodo, len(m.Metodos)),
		InitEstatico: paraRegistro(m.InitEstatico),
		PontoEntrada: paraRegistro(m.PontoEntrada),
	}
	for i, cb := range m.Metodos {
		s.Metodos[i] = paraRegistro(cb)
	}

	corpo, err := cborEncMode.Marshal(s)
	if err != nil {
		return fmt.Errorf("pbc: codificar seções: %w", err)
	}
	if err := binary.Write(w, binary.BigEndian, uint32(len(corpo))); err != nil {
		return fmt.Errorf("pbc: escrever tamanho das seções: %w", err)
	}
	if _, err := w.Write(corpo); err != nil {
		return fmt.Errorf("pbc: escrever seções: %w", err)
	}
	return nil
}

// Ler decodifica um `.pbc` de `r`, validando magic, versão e os
// invariantes conferidos por validar (índices de classe base, de
// construtor e de vtable sem passar do fim das tabelas decodificadas; o
// ponto de entrada não tem parâmetros). Qualquer violação é um erro fatal
// de formato de módulo.
func Ler(r io.Reader) (*bytecode.Modulo, error) {
	magicLido := make([]byte, len(Magic))
	if _, err := io.ReadFull(r, magicLido); err != nil {
		return nil, fmt.Errorf("pbc: ler magic: %w", err)
	}
	if string(magicLido) != Magic {
		return nil, fmt.Errorf("pbc: magic inválido: %q", magicLido)
	}

	var versao uint16
	if err := binary.Read(r, binary.BigEndian, &versao); err != nil {
		return nil, fmt.Errorf("pbc: ler versão: %w", err)
	}
	if versao != Versao {
		return nil, fmt.Errorf("pbc: versão de formato não suportada: %d", versao)
	}

	var tamanho uint32
	if err := binary.Read(r, binary.BigEndian, &tamanho); err != nil {
		return nil, fmt.Errorf("pbc: ler tamanho das seções: %w", err)
	}
	corpo := make([]byte, tamanho)
	if _, err := io.ReadFull(r, corpo); err != nil {
		return nil, fmt.Errorf("pbc: ler seções: %w", err)
	}

	var s secoes
	if err := cbor.Unmarshal(corpo, &s); err != nil {
		return nil, fmt.Errorf("pbc: decodificar seções: %w", err)
	}

	m := &bytecode.Modulo{
		Constantes:   s.Constantes,
		Classes:      s.Classes,
		Metodos:      make([]bytecode.CodeBlock, len(s.Metodos)),
		InitEstatico: deRegistro(s.InitEstatico),
		PontoEntrada: deRegistro(s.PontoEntrada),
	}
	for i, r := range s.Metodos {
		m.Metodos[i] = deRegistro(r)
	}

	if err := validar(m); err != nil {
		return nil, err
	}
	return m, nil
}

// validar confere os invariantes de decodificação: os índices de classe
// base, de construtor e de vtable de cada classe não passam do fim das
// tabelas, e o
// ponto de entrada não recebe parâmetros. Operandos de instruções não são
// conferidos.
func validar(m *bytecode.Modulo) error {
	if m.PontoEntrada.NumParam != 0 {
		return fmt.Errorf("pbc: ponto de entrada não pode ter parâmetros (tem %d)", m.PontoEntrada.NumParam)
	}
	for _, c := range m.Classes {
		if c.BaseIndice >= len(m.Classes) {
			return fmt.Errorf("pbc: classe %q referencia base fora de alcance: %d", c.FQN, c.BaseIndice)
		}
		if c.IndiceCtor >= len(m.Metodos) {
			return fmt.Errorf("pbc: classe %q referencia construtor fora de alcance: %d", c.FQN, c.IndiceCtor)
		}
		for _, slot := range c.VTable {
			if slot.IndiceCodeBlock >= len(m.Metodos) {
				return fmt.Errorf("pbc: classe %q, vtable %q referencia método fora de alcance: %d", c.FQN, slot.Chave, slot.IndiceCodeBlock)
			}
		}
	}
	return nil
}

// Codificar/Decodificar expõem round-trip em memória (sem um io.Writer/
// Reader já aberto), convenientes para testes e para o interpretador
// quando o `.pbc` já foi lido inteiro para um buffer.
func Codificar(m *bytecode.Modulo) ([]byte, error) {
	var buf bytes.Buffer
	if err := Escrever(&buf, m); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func Decodificar(data []byte) (*bytecode.Modulo, error) {
	return Ler(bytes.NewReader(data))
}
