package retrievalutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseCtl(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ctl.tab")
	data := `ND 1
NG 1
NW 1
NU[0] 700
WINDOW[0] 0
EMITTER[0] CO2
FOV_FILTER[0] filt.tab
TBLBASE tbl/table
CONV_ITMAX 10
CONV_DMIN 0.05
KERNEL_RECOMP 2
ERR_TEMP 2
RETT 1
RETQ[0] 1
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := ParseCtl(path)
	if err != nil {
		t.Fatalf("ParseCtl: %v", err)
	}
	if cfg.Ctl.NChannels() != 1 || cfg.Ctl.Channels[0] != 700 {
		t.Errorf("channels = %v, want [700]", cfg.Ctl.Channels)
	}
	if cfg.Ctl.ConvITMax != 10 {
		t.Errorf("ConvITMax = %d, want 10", cfg.Ctl.ConvITMax)
	}
	if cfg.Ctl.KernelRecomp != 2 {
		t.Errorf("KernelRecomp = %d, want 2 (overridden)", cfg.Ctl.KernelRecomp)
	}
	if !cfg.Flags.T {
		t.Error("RETT should enable flags.T")
	}
	if !cfg.Flags.Q[0] {
		t.Error("RETQ[0] should enable flags.Q[0]")
	}
	// RESMAX was left unset, so the default from ctlDefaults applies.
	if cfg.Ctl.ResMax != 0 {
		t.Errorf("ResMax = %g, want default 0", cfg.Ctl.ResMax)
	}
}
