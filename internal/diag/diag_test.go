package diag

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestFaseEscreveCampos(t *testing.T) {
	var buf bytes.Buffer
	Ativar(&buf, slog.LevelInfo)

	Fase("lex", "arquivo", "main.pr", "tokens", 42)

	out := buf.String()
	if !strings.Contains(out, "etapa=lex") {
		t.Errorf("log não contém etapa=lex: %q", out)
	}
	if !strings.Contains(out, "arquivo=main.pr") {
		t.Errorf("log não contém arquivo=main.pr: %q", out)
	}
	if !strings.Contains(out, "tokens=42") {
		t.Errorf("log não contém tokens=42: %q", out)
	}
}

func TestErroEscreveMensagem(t *testing.T) {
	var buf bytes.Buffer
	Ativar(&buf, slog.LevelInfo)

	Erro("typecheck", errors.New("tipo incompatível"))

	if !strings.Contains(buf.String(), "tipo incompatível") {
		t.Errorf("log não contém a mensagem de erro: %q", buf.String())
	}
}

func TestNivelAcimaDeInfoSuprimeFase(t *testing.T) {
	var buf bytes.Buffer
	Ativar(&buf, slog.LevelWarn)

	Fase("lex", "arquivo", "main.pr")

	if buf.Len() != 0 {
		t.Errorf("esperava nada no nível Warn, got %q", buf.String())
	}
}
