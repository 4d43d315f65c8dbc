package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"

	"pdf-form-filler/internal/domain"
	"pdf-form-filler/internal/usecase"
)

const barWidth = 30

// newBar returns the progress bar used for every snapshot.
func newBar() progress.Model {
	return progress.New(
		progress.WithGradient(string(ColorAccent), string(ColorSuccess)),
		progress.WithWidth(barWidth),
		progress.WithoutPercentage(),
	)
}

// RenderProgress renders a Progress Snapshot as "[bar] filled/total fields (pct%)".
func RenderProgress(p domain.Progress) string {
	bar := newBar()
	label := fmt.Sprintf("%d/%d fields (%d%%)", p.Filled, p.Total, p.Percent())
	if p.Total <= 0 {
		label = fmt.Sprintf("%d fields filled", p.Filled)
	}
	return bar.ViewAs(p.Ratio()) + " " + Styles.Muted.Render(label)
}

// RenderQuestion renders the pending question with its field metadata.
func RenderQuestion(q domain.Question) string {
	meta := Styles.Muted.Render(fmt.Sprintf("%s · %s", q.FieldName, q.FieldType))
	return Styles.Question.Render(q.Text) + "\n" + meta
}

// RenderTranscript renders the conversation log, oldest first.
func RenderTranscript(entries []domain.ConversationEntry) string {
	var b strings.Builder
	for _, e := range entries {
		switch e.Kind {
		case domain.EntryQuestion:
			b.WriteString(Styles.Question.Render(e.Text))
		case domain.EntryAnswer:
			b.WriteString(Styles.Answer.Render(IconArrow + " " + e.Text))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// RenderStatus renders the extended session status.
func RenderStatus(st domain.Status) string {
	p := domain.Progress{Filled: st.FilledFields, Total: st.TotalFields}
	lines := []string{
		Styles.Title.Render("Session " + st.SessionID),
		"Status:   " + statusLabel(st.Status),
		"Progress: " + RenderProgress(p),
	}
	return Styles.Box.Render(strings.Join(lines, "\n"))
}

func statusLabel(s string) string {
	switch s {
	case "completed":
		return Styles.Success.Render(s)
	case "expired":
		return Styles.Error.Render(s)
	case "":
		return Styles.Muted.Render("unknown")
	default:
		return Styles.Warning.Render(s)
	}
}

// RenderFields renders the field list of a session.
func RenderFields(fields []domain.FieldState) string {
	if len(fields) == 0 {
		return Styles.Muted.Render("No fields")
	}
	var b strings.Builder
	for _, f := range fields {
		icon := Styles.Muted.Render(IconPending)
		if f.IsFilled {
			icon = Styles.Success.Render(IconSuccess)
		}
		fmt.Fprintf(&b, "%s %s %s", icon, f.FieldName, Styles.Muted.Render("("+string(f.FieldType)+")"))
		if f.Value != nil && *f.Value != "" {
			fmt.Fprintf(&b, " = %s", *f.Value)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// RenderInspection renders a local preflight field listing.
func RenderInspection(name string, fields []domain.Field) string {
	var b strings.Builder
	b.WriteString(Styles.Title.Render(name))
	fmt.Fprintf(&b, " %s\n", Styles.Muted.Render(fmt.Sprintf("%d fillable fields", len(fields))))
	for _, f := range fields {
		fmt.Fprintf(&b, "  %s %s\n", f.Name, Styles.Muted.Render("("+string(f.Type)+")"))
	}
	return b.String()
}

// RenderCompletion renders the completion summary.
func RenderCompletion(sess domain.Session, c domain.Completion, downloadURL string) string {
	lines := []string{
		Styles.Success.Render(IconSuccess + " Form completed"),
		fmt.Sprintf("File:     %s", sess.Filename),
		fmt.Sprintf("Filled:   %d of %d fields", c.FilledFields, c.TotalFields),
	}
	if downloadURL != "" {
		lines = append(lines, "Download: "+downloadURL)
	}
	return Styles.Box.Render(strings.Join(lines, "\n"))
}

// RenderError renders a user-facing failure message.
func RenderError(message string) string {
	return Styles.ErrorBox.Render(Styles.Error.Render(IconError+" ") + message)
}

// RenderHealth renders a health probe result.
func RenderHealth(h domain.Health) string {
	if h.Status == "healthy" {
		return Styles.Success.Render(IconSuccess+" "+h.Service) + " " + Styles.Muted.Render(h.Status)
	}
	return Styles.Warning.Render(IconPending+" "+h.Service) + " " + Styles.Muted.Render(h.Status)
}

// RenderBookmarks renders saved sessions.
func RenderBookmarks(bookmarks []domain.Bookmark) string {
	if len(bookmarks) == 0 {
		return Styles.Muted.Render("No saved sessions")
	}
	var b strings.Builder
	for _, bm := range bookmarks {
		p := domain.Progress{Filled: bm.FilledFields, Total: bm.TotalFields}
		fmt.Fprintf(&b, "%s  %s  %s  %s\n",
			Styles.Bold.Render(bm.SessionID), bm.Filename,
			Styles.Muted.Render(fmt.Sprintf("%s %d/%d", bm.Phase, p.Filled, p.Total)),
			Styles.Muted.Render(bm.UpdatedAt))
	}
	return b.String()
}

// StatusLine describes a transient protocol state; empty for the others.
func StatusLine(ev usecase.Event) string {
	switch ev := ev.(type) {
	case usecase.Loading:
		return Styles.Muted.Render("Loading next question...")
	case usecase.Submitting:
		return Styles.Muted.Render(fmt.Sprintf("Submitting answer for %s...", ev.Field.Name))
	default:
		return ""
	}
}
