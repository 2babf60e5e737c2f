package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dalec/dalec/internal/driver"
)

func TestClampOptLevel(t *testing.T) {
	cases := map[string]int{
		"0": 0, "1": 1, "2": 2, "3": 2, "4": 3, "9": 2, "-1": 0, "bogus": 0,
	}
	for raw, want := range cases {
		if got := clampOptLevel(raw); got != want {
			t.Errorf("clampOptLevel(%q) = %d, want %d", raw, got, want)
		}
	}
}

// TestWriteModuleArtifactsProducesDTMAndBitcode exercises end-to-end
// scenario 1 (minus .so, which has no in-process backend to emit it):
// compiling `(module m) (def f (fn extern int (void) (return 0)))` and
// packaging it as module "m" must produce libm.dtm and libm.bc, with
// f registered in the DTM's Context.
func TestWriteModuleArtifactsProducesDTMAndBitcode(t *testing.T) {
	dir := t.TempDir()
	src := `(module m) (def f (fn extern int (void) (return 0)))`
	if err := os.WriteFile(filepath.Join(dir, "main.dt"), []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}

	cwd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(cwd)

	drv := driver.New(driver.Options{Loader: os.ReadFile, NoCommon: true})
	res, rep := drv.CompileFile("main.dt")
	if rep != nil {
		t.Fatalf("unexpected compile error: %v", rep)
	}
	if res.ModuleName != "m" {
		t.Fatalf("expected ModuleName %q, got %q", "m", res.ModuleName)
	}

	if err := writeModuleArtifacts(drv, res, res.Module); err != nil {
		t.Fatalf("writeModuleArtifacts: %v", err)
	}

	for _, name := range []string{"libm.dtm", "libm.bc", "libm-nomacros.bc", "libm.yaml"} {
		if _, err := os.Stat(name); err != nil {
			t.Errorf("expected artifact %q to exist: %v", name, err)
		}
	}

	if fns := res.Context.Root.Functions("f"); len(fns) != 1 {
		t.Fatalf("expected f to be registered in the packaged Context, got %v", fns)
	}
}
