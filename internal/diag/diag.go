// Package diag emite um registro estruturado por transição de fase do
// pipeline (lex/parse/resolve/typecheck/emit/exec), separado da lista de
// erros de compilação voltada ao usuário. Usa registros com campos
// chave-valor via `log/slog`: um `Log` de pacote, ligado uma vez no
// início do programa por `--verbose`/`-v`, consultado por toda a
// pipeline sem precisar encadear um logger por chamada de função.
package diag

import (
	"context"
	"io"
	"log/slog"
)

// Log é o logger ativo do processo. Por padrão descarta tudo (o handler
// escreve em io.Discard), do mesmo jeito que `debug.Enabled = false`
// calava toda chamada a `debug.Printf`. `Ativar` o substitui por um
// logger de verdade.
var Log = slog.New(slog.NewTextHandler(io.Discard, nil))

// Ativar liga o log estruturado, escrevendo em `w` no nível dado —
// chamado pelo `main` de `compilador`/`interpretador` quando `--verbose`/
// `-v` está presente (spec §4.11).
func Ativar(w io.Writer, nivel slog.Level) {
	Log = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: nivel}))
}

// Fase registra a transição para uma etapa do pipeline com os campos
// dados, ex.: `diag.Fase("lex", "arquivo", caminho, "tokens", n)`.
func Fase(etapa string, args ...any) {
	Log.Log(context.Background(), slog.LevelInfo, "etapa do pipeline", append([]any{"etapa", etapa}, args...)...)
}

// Erro registra uma falha fatal de uma etapa antes que ela seja
// propagada como erro — o log estruturado e a mensagem de erro do
// usuário são canais independentes (spec §4.11), este só acompanha o
// outro.
func Erro(etapa string, err error, args ...any) {
	Log.Log(context.Background(), slog.LevelError, "etapa do pipeline falhou", append([]any{"etapa", etapa, "erro", err}, args...)...)
}
