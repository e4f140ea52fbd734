// Command chaostop is a terminal front end for the chaos meter daemon. It
// polls the dashboard API and renders the gauge, factor tiles, attack map,
// and log feed in a tcell screen. With -snapshot it renders a local snapshot
// file instead, animating attacks with an in-process sequencer.
//
// Usage:
//
//	go run ./cmd/chaostop -addr http://localhost:8080
//	go run ./cmd/chaostop -snapshot testdata/snapshot.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/chaos-meter/internal/anim"
	"github.com/couchcryptid/chaos-meter/internal/domain"
	"github.com/couchcryptid/chaos-meter/internal/observability"
	"github.com/couchcryptid/chaos-meter/internal/render"
)

const (
	frameTickMs     = 100
	dashboardTickMs = 1000
	mapTop          = 6
)

// source supplies dashboard and frame view models, either from a running
// engine over HTTP or from a local snapshot file.
type source interface {
	dashboard() (render.Dashboard, error)
	frame() (anim.Frame, error)
}

type app struct {
	screen        tcell.Screen
	src           source
	width, height int

	dashboard     render.Dashboard
	frame         anim.Frame
	lastDashboard time.Time
	fetchErr      error
}

func main() {
	addr := flag.String("addr", "http://localhost:8080", "base URL of the chaosd HTTP API")
	snapshotPath := flag.String("snapshot", "", "render a local snapshot file instead of polling an engine")
	flag.Parse()

	var src source
	if *snapshotPath != "" {
		fs, err := newFileSource(*snapshotPath)
		if err != nil {
			log.Fatal(err)
		}
		src = fs
	} else {
		src = &apiSource{
			client:  &http.Client{Timeout: 5 * time.Second},
			baseURL: *addr,
		}
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		log.Fatal(err)
	}
	if err := screen.Init(); err != nil {
		log.Fatal(err)
	}

	a := &app{screen: screen, src: src}
	a.width, a.height = screen.Size()

	defer screen.Fini()
	a.run()
}

type apiSource struct {
	client  *http.Client
	baseURL string
}

func (s *apiSource) dashboard() (render.Dashboard, error) {
	var d render.Dashboard
	err := s.getJSON("/api/v1/dashboard", &d)
	return d, err
}

func (s *apiSource) frame() (anim.Frame, error) {
	var f anim.Frame
	err := s.getJSON("/api/v1/frame", &f)
	return f, err
}

func (s *apiSource) getJSON(path string, v any) error {
	resp, err := s.client.Get(s.baseURL + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: unexpected status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

// fileSource renders a static snapshot, driving its own sequencer so the
// attack map still animates.
type fileSource struct {
	snap    *domain.Snapshot
	factors map[string]domain.Factor
	seq     *anim.Sequencer
	ticks   int
}

func newFileSource(path string) (*fileSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	snap, err := domain.ParseSnapshot(data)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	seq := anim.New(clockwork.NewRealClock(),
		rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		logger, observability.NewMetrics())
	seq.SetEvents(snap.Attacks)

	return &fileSource{
		snap:    snap,
		factors: domain.MergeSnapshot(snap),
		seq:     seq,
	}, nil
}

func (s *fileSource) dashboard() (render.Dashboard, error) {
	return render.Dashboard{
		Gauge:   render.Gauge(s.snap, s.factors, 5*time.Minute, false),
		Tiles:   render.Tiles(s.factors),
		Ticker:  render.Ticker(s.snap.Headlines),
		Logs:    render.Logs(s.snap.Logs),
		Map:     render.MapVM{Markers: render.Markers()},
		Stats:   s.snap.Stats,
		Sources: s.snap.Sources,
	}, nil
}

func (s *fileSource) frame() (anim.Frame, error) {
	// Roughly one spawn per second at the frame tick rate.
	s.ticks++
	if s.ticks%(1000/frameTickMs) == 0 {
		s.seq.Spawn()
	}
	return s.seq.Advance(), nil
}

func (a *app) run() {
	ticker := time.NewTicker(frameTickMs * time.Millisecond)
	defer ticker.Stop()

	eventChan := make(chan tcell.Event, 100)
	go func() {
		for {
			eventChan <- a.screen.PollEvent()
		}
	}()

	a.refreshDashboard()

	for {
		select {
		case ev := <-eventChan:
			if !a.handleInput(ev) {
				return
			}

		case <-ticker.C:
			a.refreshFrame()
			if time.Since(a.lastDashboard).Milliseconds() > dashboardTickMs {
				a.refreshDashboard()
			}
			a.draw()
		}
	}
}

func (a *app) handleInput(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC ||
			(ev.Key() == tcell.KeyRune && ev.Rune() == 'q') {
			return false
		}
	case *tcell.EventResize:
		a.width, a.height = a.screen.Size()
		a.screen.Sync()
	}
	return true
}

func (a *app) refreshDashboard() {
	a.lastDashboard = time.Now()
	d, err := a.src.dashboard()
	if err != nil {
		a.fetchErr = err
		return
	}
	a.fetchErr = nil
	a.dashboard = d
}

func (a *app) refreshFrame() {
	f, err := a.src.frame()
	if err != nil {
		return // keep the last frame; the dashboard fetch reports errors
	}
	a.frame = f
}

func (a *app) draw() {
	a.screen.Clear()

	a.drawGauge()
	a.drawTiles()
	a.drawMap()
	a.drawLogs()
	a.drawTicker()

	if a.fetchErr != nil {
		a.drawText(0, a.height-1, tcell.StyleDefault.Foreground(tcell.ColorRed),
			truncate(fmt.Sprintf("fetch error: %v", a.fetchErr), a.width))
	}

	a.screen.Show()
}

func (a *app) drawGauge() {
	g := a.dashboard.Gauge
	style := severityStyle(g.Severity).Bold(true)

	label := fmt.Sprintf("CHAOS INDEX %s  [%s]", g.Display, g.Severity)
	if g.Stale {
		label += "  (stale)"
	}
	if !g.Authoritative {
		label += "  (computed)"
	}
	a.drawText(0, 0, style, truncate(label, a.width))

	// Horizontal bar scaled to screen width.
	filled := int(g.Score / 100 * float64(a.width))
	for x := 0; x < a.width; x++ {
		ch := '░'
		if x < filled {
			ch = '█'
		}
		a.screen.SetContent(x, 1, ch, nil, style)
	}
}

func (a *app) drawTiles() {
	x := 0
	for _, t := range a.dashboard.Tiles {
		cell := fmt.Sprintf(" %s %s %s ", t.Icon, t.Name, t.Value)
		if x+len([]rune(cell)) >= a.width {
			break
		}
		a.drawText(x, 3, severityStyle(t.Severity), cell)
		x += len([]rune(cell)) + 1
	}
}

func (a *app) drawMap() {
	mapH := a.height - mapTop - 6
	if mapH < 3 {
		return
	}

	dim := tcell.StyleDefault.Foreground(tcell.ColorGray)
	for _, m := range a.dashboard.Map.Markers {
		x, y := a.toCell(m.Pos, mapH)
		a.screen.SetContent(x, y, '·', nil, dim)
	}

	for _, p := range a.frame.Paths {
		style := tcell.StyleDefault.Foreground(tcell.ColorRed)
		for _, tp := range p.Trail {
			if tp.Opacity <= 0.05 {
				continue
			}
			x, y := a.toCell(tp.Pos, mapH)
			a.screen.SetContent(x, y, '∙', nil, style)
		}
		x, y := a.toCell(p.Lead, mapH)
		a.screen.SetContent(x, y, '●', nil, style.Bold(true))
	}

	for _, im := range a.frame.Impacts {
		style := tcell.StyleDefault.Foreground(tcell.ColorYellow)
		x, y := a.toCell(im.Center, mapH)
		a.screen.SetContent(x, y, '✸', nil, style.Bold(true))
		for _, sp := range im.Sparks {
			if sp.Opacity <= 0.05 {
				continue
			}
			sx, sy := a.toCell(sp.Pos, mapH)
			a.screen.SetContent(sx, sy, '·', nil, style)
		}
	}
}

func (a *app) drawLogs() {
	top := a.height - 6
	style := tcell.StyleDefault.Foreground(tcell.ColorGreen)
	for i, entry := range a.dashboard.Logs {
		if i >= 4 {
			break
		}
		line := fmt.Sprintf("[%s] %s", entry.Level, entry.Message)
		a.drawText(0, top+i, levelStyle(entry.Level, style), truncate(line, a.width))
	}
}

func (a *app) drawTicker() {
	if len(a.dashboard.Ticker) == 0 {
		return
	}
	// Scroll through the headline loop based on wall time.
	idx := int(time.Now().Unix()/5) % len(a.dashboard.Ticker)
	a.drawText(0, a.height-2, tcell.StyleDefault.Foreground(tcell.ColorAqua),
		truncate("» "+a.dashboard.Ticker[idx], a.width))
}

// toCell maps percent map coordinates onto the map region of the screen.
func (a *app) toCell(p domain.Point, mapH int) (int, int) {
	x := int(p.X / 100 * float64(a.width-1))
	y := mapTop + int(p.Y/100*float64(mapH-1))
	return clampInt(x, 0, a.width-1), clampInt(y, mapTop, mapTop+mapH-1)
}

func (a *app) drawText(x, y int, style tcell.Style, text string) {
	for i, r := range []rune(text) {
		if x+i >= a.width {
			return
		}
		a.screen.SetContent(x+i, y, r, nil, style)
	}
}

func severityStyle(s domain.Severity) tcell.Style {
	switch s {
	case domain.SeverityCritical:
		return tcell.StyleDefault.Foreground(tcell.ColorRed)
	case domain.SeverityHigh:
		return tcell.StyleDefault.Foreground(tcell.ColorOrange)
	case domain.SeverityMedium:
		return tcell.StyleDefault.Foreground(tcell.ColorYellow)
	default:
		return tcell.StyleDefault.Foreground(tcell.ColorGreen)
	}
}

func levelStyle(level domain.LogLevel, def tcell.Style) tcell.Style {
	switch level {
	case domain.LogError:
		return tcell.StyleDefault.Foreground(tcell.ColorRed)
	case domain.LogWarn:
		return tcell.StyleDefault.Foreground(tcell.ColorYellow)
	default:
		return def
	}
}

func truncate(s string, w int) string {
	r := []rune(s)
	if len(r) <= w {
		return s
	}
	return string(r[:w])
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
