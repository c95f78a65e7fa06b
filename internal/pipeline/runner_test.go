package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/cardgest/internal/anki"
	"github.com/dgallion1/cardgest/internal/config"
	"github.com/dgallion1/cardgest/internal/doctree"
)

var testDay = time.Date(2024, 3, 5, 9, 0, 0, 0, time.Local)

const journal = `# 学习日志

## 2024年03月04日
昨天的内容

## 2024年3月5日 周二
今天学习了 Go 的接口与组合。接口是一组方法签名，任何实现了这些方法的类型都隐式满足接口。
组合优于继承，结构体嵌入可以复用行为。

## 2024年03月06日
明天的计划
`

type fakeNotes struct {
	note    *doctree.Note
	pingErr error
	err     error
	fetched []time.Time
}

func (f *fakeNotes) Ping(context.Context) (string, error) { return "0.63.7", f.pingErr }

func (f *fakeNotes) FetchDay(_ context.Context, day time.Time) (*doctree.Note, error) {
	f.fetched = append(f.fetched, day)
	return f.note, f.err
}

type fakeModel struct {
	reply   string
	err     error
	prompts []string
	block   chan struct{}
}

func (f *fakeModel) Complete(_ context.Context, _, prompt string) (string, error) {
	if f.block != nil {
		<-f.block
	}
	f.prompts = append(f.prompts, prompt)
	return f.reply, f.err
}

func (f *fakeModel) Model() string { return "fake-model" }

type fakeSink struct {
	mu       sync.Mutex
	notes    []anki.Note
	versionE error
	countErr error
}

func (f *fakeSink) Version(context.Context) (int, error) { return 6, f.versionE }

func (f *fakeSink) EnsureDeck(context.Context, string) (bool, error) { return false, nil }

func (f *fakeSink) AddNote(_ context.Context, n anki.Note) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.notes {
		if existing.Fields["正面"] == n.Fields["正面"] {
			return 0, &anki.Error{Action: "addNote", Message: "cannot create note because it is a duplicate"}
		}
	}
	f.notes = append(f.notes, n)
	return int64(len(f.notes)), nil
}

func (f *fakeSink) DeckCardCount(context.Context, string) (int, error) {
	return len(f.notes), f.countErr
}

const twoCards = "Q: 什么是接口？\nA: 一组方法签名。\n\nQ: 为什么用组合？\nA: 复用行为。"

func newTestRunner(notes NoteSource, model Completer, sink CardSink) *Runner {
	cfg := config.Default()
	return NewRunner(&cfg, notes, model, sink, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func fullDoc(content string) *fakeNotes {
	return &fakeNotes{note: &doctree.Note{ID: "n1", Title: "学习日志", Content: content, IsFullDoc: true}}
}

func TestRun_FullDocumentToAnki(t *testing.T) {
	model := &fakeModel{reply: twoCards}
	sink := &fakeSink{}
	r := newTestRunner(fullDoc(journal), model, sink)

	var (
		outcomes  []anki.Outcome
		generated int
	)
	report, err := r.Run(context.Background(), RunOptions{
		Date: testDay,
		OnGenerated: func(rep *Report) {
			generated = len(rep.Cards)
			assert.Empty(t, sink.notes, "preview comes before export")
		},
		OnCard: func(res anki.CardResult) { outcomes = append(outcomes, res.Outcome) },
	})
	require.NoError(t, err)
	assert.Equal(t, 2, generated)

	assert.Equal(t, "2024-03-05", report.Date)
	assert.Equal(t, "0.63.7", report.SourceVersion)
	assert.Equal(t, "2024年3月5日 周二", report.Section)
	assert.Equal(t, "fake-model", report.Model)
	assert.Len(t, report.Cards, 2)
	assert.Equal(t, &anki.ExportStats{Total: 2, Added: 2}, report.Export)
	require.NotNil(t, report.DeckCards)
	assert.Equal(t, 2, *report.DeckCards)
	assert.Equal(t, []anki.Outcome{anki.OutcomeAdded, anki.OutcomeAdded}, outcomes)

	require.Len(t, model.prompts, 1)
	assert.Contains(t, model.prompts[0], "接口与组合")
	assert.NotContains(t, model.prompts[0], "昨天的内容")
	assert.NotContains(t, model.prompts[0], "明天的计划")

	assert.Equal(t, "问答题", sink.notes[0].ModelName)
	assert.Equal(t, "一组方法签名。", sink.notes[0].Fields["背面"])

	snap := r.GetRun(report.RunID).Snapshot()
	assert.Equal(t, StatusCompleted, snap.Status)
	assert.Same(t, report, snap.Report)
}

func TestRun_DryRunSkipsAnki(t *testing.T) {
	sink := &fakeSink{}
	r := newTestRunner(fullDoc(journal), &fakeModel{reply: twoCards}, sink)

	report, err := r.Run(context.Background(), RunOptions{Date: testDay, DryRun: true})
	require.NoError(t, err)
	assert.Len(t, report.Cards, 2)
	assert.Nil(t, report.Export)
	assert.Empty(t, sink.notes)
}

func TestRun_DuplicatesAreSkipped(t *testing.T) {
	sink := &fakeSink{notes: []anki.Note{{Fields: map[string]string{"正面": "什么是接口？"}}}}
	r := newTestRunner(fullDoc(journal), &fakeModel{reply: twoCards}, sink)

	report, err := r.Run(context.Background(), RunOptions{Date: testDay})
	require.NoError(t, err)
	assert.Equal(t, &anki.ExportStats{Total: 2, Added: 1, Skipped: 1}, report.Export)
}

func TestRun_NonFullDocumentUsedWhole(t *testing.T) {
	html := "<p>" + strings.Repeat("今天读了一篇关于分布式一致性的文章。", 5) + "</p><script>x()</script>"
	notes := &fakeNotes{note: &doctree.Note{Title: "2024年03月05日", Content: html}}
	model := &fakeModel{reply: twoCards}
	r := newTestRunner(notes, model, &fakeSink{})

	report, err := r.Run(context.Background(), RunOptions{Date: testDay, DryRun: true})
	require.NoError(t, err)
	assert.Empty(t, report.Section)
	assert.NotContains(t, model.prompts[0], "<p>")
	assert.NotContains(t, model.prompts[0], "x()")
}

func TestRun_Failures(t *testing.T) {
	tests := []struct {
		name       string
		notes      *fakeNotes
		model      *fakeModel
		sink       *fakeSink
		wantErr    error
		wantMsg    string
		wantStatus RunStatus
	}{
		{
			name:       "source unreachable",
			notes:      &fakeNotes{pingErr: errors.New("connection refused")},
			wantMsg:    "connect to notes",
			wantStatus: StatusFailed,
		},
		{
			name:       "fetch error",
			notes:      &fakeNotes{err: errors.New("status 500")},
			wantMsg:    "fetch note",
			wantStatus: StatusFailed,
		},
		{
			name:       "no note",
			notes:      &fakeNotes{},
			wantErr:    ErrNoteNotFound,
			wantStatus: StatusFailed,
		},
		{
			name:       "no section for the day",
			notes:      fullDoc("## 2024年03月04日\n" + strings.Repeat("内容", 50)),
			wantErr:    ErrSectionNotFound,
			wantStatus: StatusFailed,
		},
		{
			name:       "too short",
			notes:      fullDoc("## 2024-03-05\n太短了"),
			wantErr:    ErrContentTooShort,
			wantStatus: StatusSkipped,
		},
		{
			name:       "model error",
			notes:      fullDoc(journal),
			model:      &fakeModel{err: errors.New("status 401")},
			wantMsg:    "llm call failed",
			wantStatus: StatusFailed,
		},
		{
			name:       "anki down",
			notes:      fullDoc(journal),
			sink:       &fakeSink{versionE: errors.New("connection refused")},
			wantMsg:    "export to anki",
			wantStatus: StatusFailed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := tt.model
			if model == nil {
				model = &fakeModel{reply: twoCards}
			}
			sink := tt.sink
			if sink == nil {
				sink = &fakeSink{}
			}
			r := newTestRunner(tt.notes, model, sink)

			report, err := r.Run(context.Background(), RunOptions{Date: testDay})
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.wantMsg != "" {
				assert.ErrorContains(t, err, tt.wantMsg)
			}
			require.NotNil(t, report)
			assert.Equal(t, tt.wantStatus, r.GetRun(report.RunID).Snapshot().Status)
		})
	}
}

func TestRun_MinContentCountsRunes(t *testing.T) {
	// 40 Han characters is 120 bytes but still under the 50 character floor.
	r := newTestRunner(fullDoc("## 2024-03-05\n"+strings.Repeat("字", 40)), &fakeModel{reply: twoCards}, &fakeSink{})
	report, err := r.Run(context.Background(), RunOptions{Date: testDay})
	require.ErrorIs(t, err, ErrContentTooShort)
	assert.Equal(t, 40, report.ContentChars)
	assert.NotEmpty(t, report.Warnings)
}

func TestRun_NoPairsIsAWarning(t *testing.T) {
	sink := &fakeSink{}
	r := newTestRunner(fullDoc(journal), &fakeModel{reply: "抱歉，我无法生成。"}, sink)

	report, err := r.Run(context.Background(), RunOptions{Date: testDay})
	require.NoError(t, err)
	assert.Empty(t, report.Cards)
	assert.Nil(t, report.Export)
	assert.NotEmpty(t, report.Warnings)
}

func TestRun_DeckCountFailureIsAWarning(t *testing.T) {
	r := newTestRunner(fullDoc(journal), &fakeModel{reply: twoCards}, &fakeSink{countErr: errors.New("timeout")})

	report, err := r.Run(context.Background(), RunOptions{Date: testDay})
	require.NoError(t, err)
	assert.Nil(t, report.DeckCards)
	require.Len(t, report.Warnings, 1)
	assert.Contains(t, report.Warnings[0], "deck card count")
}

func TestRun_StripMarkdown(t *testing.T) {
	doc := "## 2024-03-05\n**接口** 是 Go 中实现多态的方式，`io.Reader` 是最常见的例子。\n\n- 隐式实现\n- 小接口更好组合，也更容易测试和替换实现"
	model := &fakeModel{reply: twoCards}
	cfg := config.Default()
	cfg.Generation.StripMarkdown = true
	r := NewRunner(&cfg, fullDoc(doc), model, &fakeSink{}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := r.Run(context.Background(), RunOptions{Date: testDay, DryRun: true})
	require.NoError(t, err)
	assert.NotContains(t, model.prompts[0], "**接口**")
	assert.Contains(t, model.prompts[0], "io.Reader")
}

func TestRun_RejectsConcurrentRuns(t *testing.T) {
	model := &fakeModel{reply: twoCards, block: make(chan struct{})}
	r := newTestRunner(fullDoc(journal), model, &fakeSink{})

	done := make(chan error, 1)
	go func() {
		_, err := r.Run(context.Background(), RunOptions{Date: testDay, DryRun: true})
		done <- err
	}()

	require.Eventually(t, func() bool { return r.runs.Len() == 1 }, time.Second, 5*time.Millisecond)
	_, err := r.Run(context.Background(), RunOptions{Date: testDay, DryRun: true})
	assert.ErrorIs(t, err, ErrRunInProgress)

	close(model.block)
	require.NoError(t, <-done)
}

func TestSections(t *testing.T) {
	r := newTestRunner(fullDoc(journal), &fakeModel{}, &fakeSink{})

	out, err := r.Sections(context.Background(), testDay)
	require.NoError(t, err)
	assert.Equal(t, []string{"学习日志", "2024年03月04日", "2024年3月5日 周二", "2024年03月06日"}, out.Headings)
	require.NotNil(t, out.Match)
	assert.Equal(t, "2024年3月5日 周二", out.Match.Date)

	out, err = r.Sections(context.Background(), testDay.AddDate(0, 1, 0))
	require.NoError(t, err)
	assert.Nil(t, out.Match)

	_, err = newTestRunner(&fakeNotes{}, &fakeModel{}, &fakeSink{}).Sections(context.Background(), testDay)
	assert.ErrorIs(t, err, ErrNoteNotFound)
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.md")
	require.NoError(t, os.WriteFile(path, []byte(journal), 0o600))

	src := &FileSource{Path: path}
	v, err := src.Ping(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "file journal.md", v)

	note, err := src.FetchDay(context.Background(), testDay)
	require.NoError(t, err)
	assert.Equal(t, "journal", note.Title)
	assert.True(t, note.IsFullDoc)

	_, err = (&FileSource{Path: "notes.xlsx"}).Ping(context.Background())
	assert.Error(t, err)
}

func TestNewNoteSource(t *testing.T) {
	src, closeFn := NewNoteSource(config.Trilium{FetchMode: config.FetchFile, FilePath: "a.md"})
	defer closeFn()
	assert.IsType(t, &FileSource{}, src)

	src, closeFn = NewNoteSource(config.Default().Trilium)
	defer closeFn()
	assert.NotNil(t, src)
}
