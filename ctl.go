package jurassic

import "fmt"

// ExtinctionMode selects which aerosol extinction term the non-scattering
// branch of the pencil integrator uses when scattering is switched off for
// a channel. It replaces the C source's
// strcmp(ctl.sca_ext, "beta_a") test, which is true (selects the beta_a-only
// branch) whenever the configured string differs from "beta_a" — including
// when sca_ext is empty. That observed behaviour is preserved here rather
// than "corrected", since downstream control files may already rely on it.
type ExtinctionMode int

const (
	// ExtAbsorption is selected for every other value of SCA_EXT (including
	// the default, empty string) and uses the absorption coefficient alone.
	// It is the zero value, so a Ctl with ScaExt unset behaves the same way.
	ExtAbsorption ExtinctionMode = iota
	// ExtExtinction is selected when SCA_EXT == "beta_a" and uses the full
	// extinction coefficient (absorption + scattering).
	ExtExtinction
)

// ParseExtinctionMode reproduces the C source's strcmp(ctl.sca_ext, "beta_a")
// truth table: equality selects ExtExtinction, anything else (mismatch,
// including "") selects ExtAbsorption.
func ParseExtinctionMode(scaExt string) ExtinctionMode {
	if scaExt == "beta_a" {
		return ExtExtinction
	}
	return ExtAbsorption
}

// Ctl holds the control-file parameters that configure the forward model
// and retrieval.
type Ctl struct {
	// Channels lists the instrument channel wavenumbers [cm^-1], nd = len.
	Channels []float64
	// Emitters lists the trace-gas species names looked up in the table
	// store, ng = len.
	Emitters []string
	// Windows is the number of continuum/extinction windows, nw.
	Windows int
	// ChannelWindow maps each channel index to its window index.
	ChannelWindow []int

	// CTMCO2, CTMH2O, CTMN2, CTMO2 enable the corresponding continuum term.
	CTMCO2  bool
	CTMH2O  bool
	CTMN2   bool
	CTMO2   bool

	// ScaMult is the scattering source order; zero disables scattering.
	ScaMult int
	// ScaN is the number of scattering source function evaluation angles.
	ScaN int
	// ScaExt selects the non-scattering extinction branch, see
	// ExtinctionMode.
	ScaExt ExtinctionMode

	// FOV names the field-of-view shape file, or "-" to disable FOV
	// convolution.
	FOV string

	// TableBase is the path prefix passed to the table-file naming
	// convention in table.go.
	TableBase string

	// WriteBBT requests brightness-temperature output instead of radiance.
	WriteBBT bool

	// KernelRecomp, ConvITMax, ConvDMin, ResMax, ErrAna and the per-quantity
	// error-covariance parameters configure the retrieval;
	// they are carried on Ctl because the C source's ret_t struct and ctl_t
	// struct are both loaded from the same control file.
	KernelRecomp int
	ConvITMax    int
	ConvDMin     float64
	ResMax       float64
	ErrAna       bool

	ErrNoise  []float64 // per channel
	ErrFormod []float64 // per channel, percent

	ErrPress   float64 // percent
	ErrPressCZ float64 // km
	ErrPressCH float64 // km

	ErrTemp   float64 // K
	ErrTempCZ float64
	ErrTempCH float64

	ErrQ   []float64 // percent, per gas
	ErrQCZ []float64
	ErrQCH []float64

	ErrK   []float64 // absolute, per window
	ErrKCZ []float64
	ErrKCH []float64
}

// NChannels returns nd, the number of instrument channels.
func (c *Ctl) NChannels() int { return len(c.Channels) }

// NGas returns ng, the number of retrievable/forward-modeled trace gases.
func (c *Ctl) NGas() int { return len(c.Emitters) }

// Validate checks the structural invariants a control block must satisfy
// before it is used to drive the forward model.
func (c *Ctl) Validate() error {
	if len(c.Channels) == 0 {
		return fmt.Errorf("jurassic: ctl has no channels")
	}
	if len(c.ChannelWindow) != len(c.Channels) {
		return fmt.Errorf("jurassic: ctl channel/window length mismatch: %d channels, %d window indices",
			len(c.Channels), len(c.ChannelWindow))
	}
	for id, iw := range c.ChannelWindow {
		if iw < 0 || iw >= c.Windows {
			return fmt.Errorf("jurassic: channel %d window index %d out of range [0,%d)", id, iw, c.Windows)
		}
	}
	if len(c.ErrQ) != 0 && len(c.ErrQ) != len(c.Emitters) {
		return fmt.Errorf("jurassic: ctl err_q length %d does not match %d emitters", len(c.ErrQ), len(c.Emitters))
	}
	return nil
}
