package driver_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hazyhaar/windriver/connectivity"
	"github.com/hazyhaar/windriver/driver"
	"github.com/hazyhaar/windriver/registry"

	_ "modernc.org/sqlite"
)

func newRegistry(t *testing.T, router *connectivity.Router, verbose bool) *registry.Registry {
	t.Helper()
	reg, err := registry.New(&registry.Config{Verbose: verbose}, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { reg.Close() })
	reg.RegisterConnectivity(router)
	return reg
}

func TestRegister_ServesAndWithdraws(t *testing.T) {
	router := connectivity.New()
	reg := newRegistry(t, router, false)
	f := newFixture(t, `<title>Main</title><p>x</p>`)
	ctx := context.Background()

	r, err := f.d.Register(ctx, router, 3)
	if err != nil {
		t.Fatal(err)
	}
	if r.WindowID() != 3 || r.Options().Verbose {
		t.Fatalf("registration: id %d, opts %+v", r.WindowID(), r.Options())
	}
	w, _ := reg.Window(ctx, 3)
	if w == nil || w.State != registry.StateRegistered {
		t.Fatalf("registry record: %+v", w)
	}

	title, err := driver.NewClient(router).GetTitle(ctx)
	if err != nil || title != "Main" {
		t.Fatalf("title over channel: %q, %v", title, err)
	}

	released := 0
	r.OnClose(func() error { released++; return nil })
	if err := r.Close(ctx); err != nil {
		t.Fatal(err)
	}
	if released != 1 {
		t.Fatalf("release ran %d times", released)
	}
	w, _ = reg.Window(ctx, 3)
	if w.State != registry.StateReload {
		t.Fatalf("after close: %+v", w)
	}
	_, err = router.Call(ctx, driver.ServiceName, []byte(`{"method":"getTitle"}`))
	var snf *connectivity.ErrServiceNotFound
	if !errors.As(err, &snf) {
		t.Fatalf("service still served: %v", err)
	}

	if err := r.Close(ctx); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if released != 1 {
		t.Fatalf("second close re-ran releases")
	}
}

func TestRegister_Verbose(t *testing.T) {
	router := connectivity.New()
	newRegistry(t, router, true)
	f := newFixture(t, `<p>x</p>`, driver.WithOnVerbose(driver.OpenDevToolsWhenVerbose))

	r, err := f.d.Register(context.Background(), router, 1)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close(context.Background())
	if !r.Options().Verbose {
		t.Fatal("verbose not reported")
	}
	if dt := f.window.DevTools(); len(dt) != 1 || dt[0].Mode != "detach" {
		t.Fatalf("devtools: %+v", dt)
	}
}

func TestRegister_VerboseWithoutHook(t *testing.T) {
	router := connectivity.New()
	newRegistry(t, router, true)
	f := newFixture(t, `<p>x</p>`)

	r, err := f.d.Register(context.Background(), router, 1)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close(context.Background())
	if n := len(f.window.DevTools()); n != 0 {
		t.Fatalf("devtools opened %d times without a hook", n)
	}
}

func TestRegister_VerboseHookFailureIsNotFatal(t *testing.T) {
	router := connectivity.New()
	newRegistry(t, router, true)
	f := newFixture(t, `<p>x</p>`, driver.WithOnVerbose(driver.OpenDevToolsWhenVerbose))
	f.window.Err = errors.New("no devtools")

	r, err := f.d.Register(context.Background(), router, 1)
	if err != nil {
		t.Fatalf("hook failure aborted registration: %v", err)
	}
	r.Close(context.Background())
}

func TestRegister_RollsBackWhenRegistryFails(t *testing.T) {
	router := connectivity.New()
	f := newFixture(t, `<p>x</p>`)
	ctx := context.Background()

	_, err := f.d.Register(ctx, router, 1)
	var snf *connectivity.ErrServiceNotFound
	if !errors.As(err, &snf) || snf.Service != driver.RegistryServiceName {
		t.Fatalf("got %T: %v", err, err)
	}
	if _, ok := router.Inspect(driver.ServiceName); ok {
		t.Fatal("driver service left registered")
	}
}

func TestRegister_InvalidWindow(t *testing.T) {
	router := connectivity.New()
	newRegistry(t, router, false)
	f := newFixture(t, `<p>x</p>`)

	_, err := f.d.Register(context.Background(), router, 0)
	var iw *registry.ErrInvalidWindow
	if !errors.As(err, &iw) {
		t.Fatalf("got %T: %v", err, err)
	}
}

func TestRegistration_CloseJoinsErrors(t *testing.T) {
	router := connectivity.New()
	newRegistry(t, router, false)
	f := newFixture(t, `<p>x</p>`)
	ctx := context.Background()

	r, err := f.d.Register(ctx, router, 2)
	if err != nil {
		t.Fatal(err)
	}
	boom := errors.New("channel close failed")
	second := false
	r.OnClose(func() error { return boom })
	r.OnClose(func() error { second = true; return nil })

	router.UnregisterLocal(driver.RegistryServiceName)
	err = r.Close(ctx)
	if !errors.Is(err, boom) {
		t.Fatalf("release error lost: %v", err)
	}
	var snf *connectivity.ErrServiceNotFound
	if !errors.As(err, &snf) {
		t.Fatalf("reload error lost: %v", err)
	}
	if !second {
		t.Fatal("later release skipped")
	}
	if _, ok := router.Inspect(driver.ServiceName); ok {
		t.Fatal("service not withdrawn")
	}
}

// stalledTerminal blocks until the call's context ends.
type stalledTerminal struct{}

func (stalledTerminal) BufferLines(ctx context.Context) ([]string, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (stalledTerminal) Input(ctx context.Context, _ string) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestRegister_CallTimeout(t *testing.T) {
	router := connectivity.New()
	newRegistry(t, router, false)
	f := newFixture(t, `<div id="term"></div>`, driver.WithCallTimeout(20*time.Millisecond))
	f.doc.MustQuery("#term").AttachTerminal(stalledTerminal{})
	ctx := context.Background()

	r, err := f.d.Register(ctx, router, 4)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close(ctx)

	start := time.Now()
	_, err = driver.NewClient(router).GetTerminalBuffer(ctx, "#term")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("got %v, want deadline exceeded", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("call not bounded by timeout: %v", elapsed)
	}
}
