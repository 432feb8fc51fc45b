package notifier

import (
	"fmt"
	"html"
	"sort"
	"strings"

	"StaySentinel/internal/model"
)

// FormatRunSummary formats a finished run and its top properties into a Telegram message.
func FormatRunSummary(run *model.RunSummary, batch []*model.ReconciledEntity) string {
	var b strings.Builder

	status := "✅"
	if run.Error != "" {
		status = "❌"
	}
	b.WriteString(fmt.Sprintf("%s <b>StaySentinel</b> | %s | %s\n\n", status, html.EscapeString(run.Locality), run.StartedAt.Format("2006-01-02 15:04")))

	b.WriteString(fmt.Sprintf("Días: %d/%d (omitidos %d)\n", run.DaysCollected, run.DaysRequested, run.DaysSkipped))
	b.WriteString(fmt.Sprintf("Hoteles: %d vistos, %d publicados, %d sin historial, %d con pronóstico inválido\n",
		run.EntitiesSeen, run.EntitiesPublished, run.EntitiesDropped, run.EntitiesMalformed))
	b.WriteString(fmt.Sprintf("Sincronización: %s", run.RemotePath))
	if run.RemotePath == model.RemoteFallback {
		b.WriteString(fmt.Sprintf(" (%d/%d registros fallidos)", run.RecordsFailed, run.RecordsAttempted))
	}
	b.WriteString("\n")
	if d := run.Duration(); d > 0 {
		b.WriteString(fmt.Sprintf("Duración: %s\n", d.Round(1e9)))
	}

	if len(batch) > 0 {
		top := make([]*model.ReconciledEntity, len(batch))
		copy(top, batch)
		sort.SliceStable(top, func(i, j int) bool { return top[i].AveragePrice < top[j].AveragePrice })
		if len(top) > 5 {
			top = top[:5]
		}
		b.WriteString("\n💰 <b>Más económicos:</b>\n")
		for _, e := range top {
			b.WriteString(fmt.Sprintf("  %s: $%.2f (%d–%d, %d noches)\n",
				html.EscapeString(e.Name), e.AveragePrice, e.LowPrice, e.HighPrice, e.ObservedNights))
		}
	}

	if run.Error != "" {
		b.WriteString(fmt.Sprintf("\n⚠️ %s\n", html.EscapeString(run.Error)))
	}
	return b.String()
}

// FormatRecentRuns formats a short run history for the /runs command.
func FormatRecentRuns(runs []model.RunSummary) string {
	if len(runs) == 0 {
		return "Sin ejecuciones registradas"
	}
	var b strings.Builder
	b.WriteString("📅 <b>Ejecuciones recientes</b>\n\n")
	for _, r := range runs {
		status := "ok"
		if r.Error != "" {
			status = "error"
		}
		b.WriteString(fmt.Sprintf("%s %s: %d hoteles, %s, %s\n",
			r.StartedAt.Format("01-02 15:04"), r.Trigger, r.EntitiesPublished, r.RemotePath, status))
	}
	return b.String()
}
