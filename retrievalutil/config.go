// Package retrievalutil implements the command-line driver around the
// jurassic forward model and retrieval: control-file parsing, the ASCII
// atm/obs file formats, and the directory-list retrieval loop.
package retrievalutil

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	jurassic "github.com/paul-f-baumeister/jurassic-scatter"
)

// ctlDefaults mirrors read_ret's hard-coded defaults (retrieval.c), so a
// control file only needs to override the keys it cares about.
var ctlDefaults = map[string]string{
	"KERNEL_RECOMP": "3",
	"CONV_ITMAX":    "30",
	"CONV_DMIN":     "0.1",
	"RESMAX":        "0",
	"ERR_ANA":       "1",
	"ERR_PRESS":     "0",
	"ERR_PRESS_CZ":  "0",
	"ERR_PRESS_CH":  "0",
	"ERR_TEMP":      "0",
	"ERR_TEMP_CZ":   "0",
	"ERR_TEMP_CH":   "0",
	"SCA_MULT":      "0",
	"SCA_N":         "0",
	"SCA_EXT":       "",
	"FOV":           "-",
	"WRITE_BBT":     "0",
	"CTM_CO2":       "0",
	"CTM_H2O":       "0",
	"CTM_N2":        "0",
	"CTM_O2":        "0",
}

// RetrievalConfig is everything ParseCtl extracts from one control file:
// the jurassic.Ctl, the state-vector RetrievalFlags, and the file paths
// the control file names (table base, filter shapes).
type RetrievalConfig struct {
	Ctl         *jurassic.Ctl
	Flags       jurassic.RetrievalFlags
	TableBase   string
	FilterFiles []string
}

// ParseCtl reads a control file in the "KEY value [value...]" line format,
// applying ctlDefaults for any key left unset, matching read_ret's
// behaviour of filling in every field with a sane default before applying
// the file's overrides.
func ParseCtl(path string) (*RetrievalConfig, error) {
	raw, err := readKeyValueFile(path)
	if err != nil {
		return nil, fmt.Errorf("retrievalutil: reading control file %s: %w", path, err)
	}
	get := func(key string) string {
		if v, ok := raw[key]; ok {
			return v
		}
		return ctlDefaults[key]
	}

	nd, err := intField(raw, "ND")
	if err != nil {
		return nil, err
	}
	ng, err := intField(raw, "NG")
	if err != nil {
		return nil, err
	}
	nw, err := intField(raw, "NW")
	if err != nil {
		return nil, err
	}

	ctl := &jurassic.Ctl{Windows: nw}
	ctl.Channels = make([]float64, nd)
	ctl.ChannelWindow = make([]int, nd)
	cfg := &RetrievalConfig{FilterFiles: make([]string, nd)}
	for id := 0; id < nd; id++ {
		ctl.Channels[id], err = floatField(raw, fmt.Sprintf("NU[%d]", id))
		if err != nil {
			return nil, err
		}
		ctl.ChannelWindow[id], err = intFieldDefault(raw, fmt.Sprintf("WINDOW[%d]", id), 0)
		if err != nil {
			return nil, err
		}
		cfg.FilterFiles[id] = raw[fmt.Sprintf("FOV_FILTER[%d]", id)]
	}

	ctl.Emitters = make([]string, ng)
	for ig := 0; ig < ng; ig++ {
		ctl.Emitters[ig] = raw[fmt.Sprintf("EMITTER[%d]", ig)]
	}

	ctl.CTMCO2 = get("CTM_CO2") == "1"
	ctl.CTMH2O = get("CTM_H2O") == "1"
	ctl.CTMN2 = get("CTM_N2") == "1"
	ctl.CTMO2 = get("CTM_O2") == "1"

	ctl.ScaMult, err = strconv.Atoi(get("SCA_MULT"))
	if err != nil {
		return nil, fmt.Errorf("retrievalutil: bad SCA_MULT: %w", err)
	}
	ctl.ScaN, err = strconv.Atoi(get("SCA_N"))
	if err != nil {
		return nil, fmt.Errorf("retrievalutil: bad SCA_N: %w", err)
	}
	ctl.ScaExt = jurassic.ParseExtinctionMode(get("SCA_EXT"))
	ctl.FOV = get("FOV")
	ctl.TableBase = raw["TBLBASE"]
	ctl.WriteBBT = get("WRITE_BBT") == "1"

	ctl.KernelRecomp, err = strconv.Atoi(get("KERNEL_RECOMP"))
	if err != nil {
		return nil, fmt.Errorf("retrievalutil: bad KERNEL_RECOMP: %w", err)
	}
	ctl.ConvITMax, err = strconv.Atoi(get("CONV_ITMAX"))
	if err != nil {
		return nil, fmt.Errorf("retrievalutil: bad CONV_ITMAX: %w", err)
	}
	ctl.ConvDMin, err = strconv.ParseFloat(get("CONV_DMIN"), 64)
	if err != nil {
		return nil, fmt.Errorf("retrievalutil: bad CONV_DMIN: %w", err)
	}
	ctl.ResMax, err = strconv.ParseFloat(get("RESMAX"), 64)
	if err != nil {
		return nil, fmt.Errorf("retrievalutil: bad RESMAX: %w", err)
	}
	ctl.ErrAna = get("ERR_ANA") == "1"

	ctl.ErrNoise = make([]float64, nd)
	ctl.ErrFormod = make([]float64, nd)
	for id := 0; id < nd; id++ {
		ctl.ErrNoise[id], _ = floatFieldDefault(raw, fmt.Sprintf("ERR_NOISE[%d]", id), 0)
		ctl.ErrFormod[id], _ = floatFieldDefault(raw, fmt.Sprintf("ERR_FORMOD[%d]", id), 0)
	}

	ctl.ErrPress, _ = strconv.ParseFloat(get("ERR_PRESS"), 64)
	ctl.ErrPressCZ, _ = strconv.ParseFloat(get("ERR_PRESS_CZ"), 64)
	ctl.ErrPressCH, _ = strconv.ParseFloat(get("ERR_PRESS_CH"), 64)
	ctl.ErrTemp, _ = strconv.ParseFloat(get("ERR_TEMP"), 64)
	ctl.ErrTempCZ, _ = strconv.ParseFloat(get("ERR_TEMP_CZ"), 64)
	ctl.ErrTempCH, _ = strconv.ParseFloat(get("ERR_TEMP_CH"), 64)

	ctl.ErrQ = make([]float64, ng)
	ctl.ErrQCZ = make([]float64, ng)
	ctl.ErrQCH = make([]float64, ng)
	flags := jurassic.RetrievalFlags{Q: make([]bool, ng), K: make([]bool, nw)}
	for ig := 0; ig < ng; ig++ {
		ctl.ErrQ[ig], _ = floatFieldDefault(raw, fmt.Sprintf("ERR_Q[%d]", ig), 0)
		ctl.ErrQCZ[ig], _ = floatFieldDefault(raw, fmt.Sprintf("ERR_Q_CZ[%d]", ig), 0)
		ctl.ErrQCH[ig], _ = floatFieldDefault(raw, fmt.Sprintf("ERR_Q_CH[%d]", ig), 0)
		flags.Q[ig] = raw[fmt.Sprintf("RETQ[%d]", ig)] == "1"
	}

	ctl.ErrK = make([]float64, nw)
	ctl.ErrKCZ = make([]float64, nw)
	ctl.ErrKCH = make([]float64, nw)
	for iw := 0; iw < nw; iw++ {
		ctl.ErrK[iw], _ = floatFieldDefault(raw, fmt.Sprintf("ERR_K[%d]", iw), 0)
		ctl.ErrKCZ[iw], _ = floatFieldDefault(raw, fmt.Sprintf("ERR_K_CZ[%d]", iw), 0)
		ctl.ErrKCH[iw], _ = floatFieldDefault(raw, fmt.Sprintf("ERR_K_CH[%d]", iw), 0)
		flags.K[iw] = raw[fmt.Sprintf("RETK[%d]", iw)] == "1"
	}
	flags.P = raw["RETP"] == "1"
	flags.T = raw["RETT"] == "1"

	if err := ctl.Validate(); err != nil {
		return nil, err
	}

	cfg.Ctl = ctl
	cfg.Flags = flags
	cfg.TableBase = ctl.TableBase
	return cfg, nil
}

func readKeyValueFile(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	out := make(map[string]string)
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		out[fields[0]] = strings.Join(fields[1:], " ")
	}
	return out, sc.Err()
}

func intField(raw map[string]string, key string) (int, error) {
	v, ok := raw[key]
	if !ok {
		return 0, fmt.Errorf("retrievalutil: control file is missing required key %s", key)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("retrievalutil: bad integer value for %s: %w", key, err)
	}
	return n, nil
}

func intFieldDefault(raw map[string]string, key string, def int) (int, error) {
	v, ok := raw[key]
	if !ok {
		return def, nil
	}
	return strconv.Atoi(v)
}

func floatField(raw map[string]string, key string) (float64, error) {
	v, ok := raw[key]
	if !ok {
		return 0, fmt.Errorf("retrievalutil: control file is missing required key %s", key)
	}
	return strconv.ParseFloat(v, 64)
}

func floatFieldDefault(raw map[string]string, key string, def float64) (float64, error) {
	v, ok := raw[key]
	if !ok {
		return def, nil
	}
	return strconv.ParseFloat(v, 64)
}
