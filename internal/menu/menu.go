package menu

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/bowerhall/roster/internal/history"
	"github.com/bowerhall/roster/internal/logger"
	"github.com/bowerhall/roster/internal/person"
	"github.com/bowerhall/roster/internal/search"
	"github.com/bowerhall/roster/internal/session"
	"github.com/bowerhall/roster/internal/watch"
)

const (
	recentLimit = 10

	// changes seen this soon after our own write are ours
	selfWriteWindow = 2 * time.Second
)

type Deps struct {
	Session *session.Session
	Builder Builder
	Store   Store
	Engine  *search.Engine
	History Recorder // optional
	Backup  Backup   // optional
}

type styles struct {
	title  lipgloss.Style
	ok     lipgloss.Style
	warn   lipgloss.Style
	err    lipgloss.Style
	label  lipgloss.Style
	notice lipgloss.Style
}

// Menu is the interactive line-oriented front end. It reads one line per
// prompt and never exits on bad input.
type Menu struct {
	in     *bufio.Scanner
	out    io.Writer
	outMu  sync.Mutex
	deps   Deps
	styles styles

	lastWrite atomic.Int64
	now       func() time.Time
}

func New(in io.Reader, out io.Writer, deps Deps) *Menu {
	if deps.Session == nil {
		deps.Session = session.New()
	}
	if deps.Engine == nil {
		deps.Engine = search.New(nil)
	}

	r := lipgloss.NewRenderer(out)

	m := &Menu{
		in:   bufio.NewScanner(in),
		out:  out,
		deps: deps,
		now:  time.Now,
		styles: styles{
			title:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
			ok:     r.NewStyle().Foreground(lipgloss.Color("10")),
			warn:   r.NewStyle().Foreground(lipgloss.Color("11")),
			err:    r.NewStyle().Foreground(lipgloss.Color("9")),
			label:  r.NewStyle().Bold(true),
			notice: r.NewStyle().Italic(true).Foreground(lipgloss.Color("8")),
		},
	}

	if pr, ok := deps.Builder.(progressReporter); ok {
		pr.OnProgress(func(fetched, target int) {
			m.printf("Downloaded %d/%d records...\n", fetched, target)
		})
	}

	return m
}

// Run shows the menu until the user exits or input ends.
func (m *Menu) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		m.showMenu()

		choice, ok := m.readLine()
		if !ok {
			m.printf("\n")
			return m.in.Err()
		}

		switch choice {
		case "1":
			m.generate(ctx)
		case "2":
			m.load()
		case "3":
			m.search()
		case "4":
			m.showHistory()
		case "5":
			m.backup(ctx)
		case "6":
			m.restore(ctx)
		case "0":
			return nil
		default:
			m.printf("%s\n", m.styles.warn.Render("Invalid option."))
		}
	}
}

// Notify prints an asynchronous notice, e.g. from the file watcher.
func (m *Menu) Notify(msg string) {
	m.printf("\n%s\n", m.styles.notice.Render(msg))
}

// FileChanged reports a data file change made by someone else. Changes
// right after this menu wrote the file are ignored.
func (m *Menu) FileChanged(ev watch.Event) {
	if last := m.lastWrite.Load(); last != 0 && m.now().Sub(time.Unix(0, last)) < selfWriteWindow {
		return
	}

	m.Notify(fmt.Sprintf("Data file %s was %s outside this session. Use option 2 to reload it.", ev.Path, ev.Op))
}

func (m *Menu) markWrite() {
	m.lastWrite.Store(m.now().UnixNano())
}

func (m *Menu) showMenu() {
	var b strings.Builder
	b.WriteString("\n" + m.styles.title.Render("=== MENU ===") + "\n")
	b.WriteString("1 - Generate data file\n")
	b.WriteString("2 - Load data file\n")
	b.WriteString("3 - Run sequential search\n")
	if m.deps.History != nil {
		b.WriteString("4 - Show search history\n")
	}
	if m.deps.Backup != nil {
		b.WriteString("5 - Back up data file\n")
		b.WriteString("6 - Restore data file\n")
	}
	b.WriteString("0 - Exit\n")
	b.WriteString("Choose an option: ")
	m.printf("%s", b.String())
}

func (m *Menu) generate(ctx context.Context) {
	m.printf("How many people do you want to generate? ")
	line, ok := m.readLine()
	if !ok {
		return
	}

	n, err := strconv.Atoi(line)
	if err != nil {
		m.printf("%s\n", m.styles.warn.Render("Invalid number."))
		return
	}

	start := time.Now()
	ds, err := m.deps.Builder.Build(ctx, n)
	if err == nil {
		m.markWrite()
		err = m.deps.Store.Save(ds)
		m.markWrite()
	}
	m.recordBuild(n, len(ds), time.Since(start), err)

	switch {
	case err == nil:
		m.printf("%s\n", m.styles.ok.Render(fmt.Sprintf("File '%s' generated with %d records.", m.deps.Store.Path(), len(ds))))
	case errors.Is(err, person.ErrInvalidArgument):
		m.printf("%s\n", m.styles.warn.Render("Invalid number."))
	case errors.Is(err, person.ErrSourceUnavailable):
		m.printf("%s\n", m.styles.err.Render(fmt.Sprintf("Record source unavailable, nothing was written: %v", err)))
	case errors.Is(err, person.ErrInsufficientData):
		m.printf("%s\n", m.styles.err.Render(fmt.Sprintf("Record source kept under-delivering, nothing was written: %v", err)))
	default:
		m.printf("%s\n", m.styles.err.Render(fmt.Sprintf("Could not generate data file: %v", err)))
	}
}

func (m *Menu) load() {
	n, err := m.deps.Session.Load(m.deps.Store)

	switch {
	case err == nil:
		m.printf("%s\n", m.styles.ok.Render(fmt.Sprintf("Data loaded! %d records stored in memory.", n)))
	case errors.Is(err, person.ErrNotFound):
		m.printf("%s\n", m.styles.warn.Render("No data file found."))
	case errors.Is(err, person.ErrCorruptData):
		m.printf("%s\n", m.styles.err.Render(fmt.Sprintf("Data file is corrupt, keeping current data: %v", err)))
	default:
		m.printf("%s\n", m.styles.err.Render(fmt.Sprintf("Could not load data file: %v", err)))
	}
}

func (m *Menu) search() {
	ds, loaded := m.deps.Session.Dataset()
	if !loaded {
		m.printf("%s\n", m.styles.warn.Render("No data loaded in memory. Load the data first."))
		return
	}

	m.printf("Enter the code of the person to search for: ")
	line, ok := m.readLine()
	if !ok {
		return
	}

	res, err := m.deps.Engine.Lookup(ds, line)
	if err != nil {
		m.printf("%s\n", m.styles.warn.Render("Invalid code."))
		return
	}

	m.report(res)
	m.recordSearch(res)
}

func (m *Menu) report(res search.Result) {
	var b strings.Builder

	if res.Found() {
		b.WriteString("\n" + m.styles.ok.Render("Person found:") + "\n")
		b.WriteString(res.Record.String())
	} else {
		b.WriteString("\n" + m.styles.warn.Render("Person not found.") + "\n")
	}

	ms := float64(res.Elapsed.Nanoseconds()) / float64(time.Millisecond)

	fmt.Fprintf(&b, "\n%s %d\n", m.styles.label.Render("Comparisons:"), res.Comparisons)
	fmt.Fprintf(&b, "%s %.4f ms\n", m.styles.label.Render("Search time:"), ms)
	fmt.Fprintf(&b, "%s %s\n", m.styles.label.Render("Memory before search:"), humanize.IBytes(res.MemBefore))
	fmt.Fprintf(&b, "%s %s\n", m.styles.label.Render("Memory after search:"), humanize.IBytes(res.MemAfter))
	fmt.Fprintf(&b, "%s %s\n", m.styles.label.Render("Peak memory:"), humanize.IBytes(res.MemPeak))

	m.printf("%s", b.String())
}

func (m *Menu) showHistory() {
	if m.deps.History == nil {
		m.printf("%s\n", m.styles.warn.Render("Invalid option."))
		return
	}

	builds, err := m.deps.History.RecentBuilds(recentLimit)
	if err != nil {
		m.printf("%s\n", m.styles.err.Render(fmt.Sprintf("Could not read history: %v", err)))
		return
	}

	runs, err := m.deps.History.RecentSearches(recentLimit)
	if err != nil {
		m.printf("%s\n", m.styles.err.Render(fmt.Sprintf("Could not read history: %v", err)))
		return
	}

	if len(builds) == 0 && len(runs) == 0 {
		m.printf("Nothing recorded yet.\n")
		return
	}

	var b strings.Builder
	if len(builds) > 0 {
		b.WriteString("\n" + m.styles.title.Render("Recent builds") + "\n")
		for _, r := range builds {
			result := "ok"
			if r.Error != "" {
				result = "failed: " + r.Error
			}
			fmt.Fprintf(&b, "%s  %d of %d records  %s  %s\n",
				humanize.Time(r.CreatedAt), r.Received, r.Requested, r.Elapsed, result)
		}
	}

	if len(runs) > 0 {
		b.WriteString("\n" + m.styles.title.Render("Recent searches") + "\n")
		for _, r := range runs {
			result := "not found"
			if r.Found {
				result = "found"
			}
			fmt.Fprintf(&b, "%s  code %-8d %-9s %6d comparisons  %s  peak %s\n",
				humanize.Time(r.CreatedAt), r.Target, result, r.Comparisons, r.Elapsed, humanize.IBytes(r.MemPeak))
		}
	}

	if st, err := m.deps.History.Stats(); err == nil {
		fmt.Fprintf(&b, "\n%d searches, %d found, %.1f comparisons on average; %d builds (%d failed)\n",
			st.Searches, st.Found, st.AvgComparisons, st.Builds, st.FailedBuilds)
	}

	m.printf("%s", b.String())
}

func (m *Menu) backup(ctx context.Context) {
	if m.deps.Backup == nil {
		m.printf("%s\n", m.styles.warn.Render("Invalid option."))
		return
	}
	if !m.storageReachable(ctx) {
		return
	}

	name, err := m.deps.Backup.Backup(ctx, m.deps.Store.Path())
	if err != nil {
		m.printf("%s\n", m.styles.err.Render(fmt.Sprintf("Backup failed: %v", err)))
		return
	}

	m.printf("%s\n", m.styles.ok.Render("Backed up as "+name))
}

func (m *Menu) restore(ctx context.Context) {
	if m.deps.Backup == nil {
		m.printf("%s\n", m.styles.warn.Render("Invalid option."))
		return
	}
	if !m.storageReachable(ctx) {
		return
	}

	backups, err := m.deps.Backup.Backups(ctx)
	if err != nil {
		m.printf("%s\n", m.styles.err.Render(fmt.Sprintf("Could not list backups: %v", err)))
		return
	}

	if len(backups) == 0 {
		m.printf("No backups available.\n")
		return
	}

	for i, f := range backups {
		m.printf("%d - %s (%s, %s)\n", i+1, f.Name, humanize.IBytes(uint64(f.Size)), humanize.Time(f.ModTime))
	}
	m.printf("Choose a backup: ")

	line, ok := m.readLine()
	if !ok {
		return
	}

	idx, err := strconv.Atoi(line)
	if err != nil || idx < 1 || idx > len(backups) {
		m.printf("%s\n", m.styles.warn.Render("Invalid option."))
		return
	}

	m.markWrite()
	if err := m.deps.Backup.Restore(ctx, backups[idx-1].Name, m.deps.Store.Path()); err != nil {
		m.printf("%s\n", m.styles.err.Render(fmt.Sprintf("Restore failed: %v", err)))
		return
	}
	m.markWrite()

	m.printf("%s\n", m.styles.ok.Render("Data file restored. Load it with option 2."))
}

func (m *Menu) storageReachable(ctx context.Context) bool {
	if m.deps.Backup.Healthy(ctx) {
		return true
	}
	logger.Warn("backup storage unreachable")
	m.printf("%s\n", m.styles.err.Render("Backup storage unreachable."))
	return false
}

func (m *Menu) recordBuild(requested, received int, elapsed time.Duration, err error) {
	if m.deps.History == nil {
		return
	}

	run := history.BuildRun{Requested: requested, Received: received, Elapsed: elapsed}
	if err != nil {
		run.Error = err.Error()
	}

	if _, rerr := m.deps.History.RecordBuild(run); rerr != nil {
		logger.Warn("failed to record build", "error", rerr)
	}
}

func (m *Menu) recordSearch(res search.Result) {
	if m.deps.History == nil {
		return
	}

	_, err := m.deps.History.RecordSearch(history.SearchRun{
		Target:      res.Target,
		Found:       res.Found(),
		Comparisons: res.Comparisons,
		DatasetSize: res.DatasetSize,
		Elapsed:     res.Elapsed,
		MemBefore:   res.MemBefore,
		MemAfter:    res.MemAfter,
		MemPeak:     res.MemPeak,
	})
	if err != nil {
		logger.Warn("failed to record search", "error", err)
	}
}

func (m *Menu) readLine() (string, bool) {
	if !m.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(m.in.Text()), true
}

func (m *Menu) printf(format string, args ...any) {
	m.outMu.Lock()
	defer m.outMu.Unlock()
	fmt.Fprintf(m.out, format, args...)
}
