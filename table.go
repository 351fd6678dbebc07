package jurassic

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"log"
	"os"
	"runtime"
	"sync"

	"github.com/ctessum/requestcache"
)

// maxTableRows bounds every axis read from a binary table file. It exists
// to turn a corrupt or hostile file into an error instead of an
// unbounded allocation; it is not a feature of the table format itself.
const maxTableRows = 1 << 20

// GasChannelTable is one emissivity growth table: for a
// single (gas, channel) pair, column density and emissivity as a
// function of pressure and temperature, stored ragged exactly as the
// source file lays it out (each pressure level may have a different
// number of temperatures; each (pressure, temperature) cell may have a
// different number of column-density points).
type GasChannelTable struct {
	P   []float64     // pressure axis, length np
	T   [][]float64   // [np][nt[ip]] temperature axis
	U   [][][]float32 // [np][nt[ip]][nu] column density axis
	Eps [][][]float32 // [np][nt[ip]][nu] emissivity, parallel to U
}

// NP returns the number of pressure levels in the table, 0 if the table
// is absent (a missing table file is not an error; see loadTable).
func (t *GasChannelTable) NP() int {
	if t == nil {
		return 0
	}
	return len(t.P)
}

// EpsAt looks up the emissivity at pressure p, temperature tt and column
// density u. It takes the lower bracketing pressure row and, within it,
// the lower bracketing temperature row, and linearly interpolates in
// column density only; there is no interpolation across pressure or
// temperature. The result is clamped to [0,1] as forwardmodel.c's
// intpol_tbl_eps does after every interpolation step.
func (t *GasChannelTable) EpsAt(p, tt, u float64) float64 {
	if t.NP() == 0 {
		return 0
	}
	ip := clampIndex(locateF64(t.P, p), len(t.P)-1)
	it := clampIndex(locateF64(t.T[ip], tt), len(t.T[ip])-1)
	uf := float32(u)
	axis := t.U[ip][it]
	iu := clampIndex(locateF32(axis, uf), len(axis)-1)
	eps := linF32(axis[iu], t.Eps[ip][it][iu], axis[iu+1], t.Eps[ip][it][iu+1], uf)
	return clamp01(eps)
}

// UAt is the inverse of EpsAt: the column density that would produce
// emissivity eps at pressure p, temperature tt, using the same lower
// pressure and temperature rows.
func (t *GasChannelTable) UAt(p, tt, eps float64) float64 {
	if t.NP() == 0 {
		return 0
	}
	ip := clampIndex(locateF64(t.P, p), len(t.P)-1)
	it := clampIndex(locateF64(t.T[ip], tt), len(t.T[ip])-1)
	ef := float32(eps)
	axis := t.Eps[ip][it]
	ie := clampIndex(locateF32(axis, ef), len(axis)-1)
	return linF32(axis[ie], t.U[ip][it][ie], axis[ie+1], t.U[ip][it][ie+1], ef)
}

func clampIndex(i, max int) int {
	if i < 0 {
		return 0
	}
	if i > max {
		return max
	}
	return i
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// TableStore is the process-lifetime cache of every (gas, channel) table,
// loaded lazily and once, replacing the original's global mutable table
// pointers with an explicit, passed-around cache. It follows the same
// lazy-singleton idiom as InMAP's source-receptor table reader: a
// requestcache.Cache backed by a sync.Once-guarded loader, so concurrent
// pencil rays sharing one TableStore never race on first load and never
// reload per ray.
type TableStore struct {
	ctl  *Ctl
	base string

	once  sync.Once
	cache *requestcache.Cache
}

// NewTableStore returns a TableStore that loads tables from files named
// "<base>_<nu>_<gas>.bin" or ".tab" on first access.
func NewTableStore(ctl *Ctl, base string) *TableStore {
	return &TableStore{ctl: ctl, base: base}
}

type tableKey struct {
	gas string
	nu  float64
}

func (s *TableStore) init() {
	s.once.Do(func() {
		s.cache = requestcache.NewCache(func(ctx context.Context, request interface{}) (interface{}, error) {
			key := request.(tableKey)
			return loadTable(s.base, key.gas, key.nu)
		}, runtime.GOMAXPROCS(-1),
			requestcache.Deduplicate(), requestcache.Memory(256))
	})
}

// Table returns the table for gas ig, channel id, loading it on first use.
// Concurrent pencil rays sharing one TableStore (see forward.go) all hit
// this same cache, so the file is read exactly once per (gas, channel).
func (s *TableStore) Table(ig, id int) (*GasChannelTable, error) {
	s.init()
	key := tableKey{gas: s.ctl.Emitters[ig], nu: s.ctl.Channels[id]}
	req := s.cache.NewRequest(context.TODO(), key,
		fmt.Sprintf("%s_%g", key.gas, key.nu))
	v, err := req.Result()
	if err != nil {
		return nil, err
	}
	return v.(*GasChannelTable), nil
}

// loadTable loads one gas/channel table, preferring the binary format and
// falling back to ASCII (forwardmodel.c's read_tbl). A missing file of
// either kind is not an error: it yields an empty table (NP()==0), which
// EpsAt/UAt treat as "no absorption"; the missing file is reported with a
// log message and the gas/channel combination is otherwise skipped.
func loadTable(base, gas string, nu float64) (*GasChannelTable, error) {
	binPath := tableFilename(base, nu, gas, "bin")
	if f, err := os.Open(binPath); err == nil {
		defer f.Close()
		t, err := readBinaryTable(bufio.NewReader(f))
		if err != nil {
			return nil, fmt.Errorf("jurassic: reading binary table %s: %w", binPath, err)
		}
		return t, nil
	}
	ascPath := tableFilename(base, nu, gas, "tab")
	f, err := os.Open(ascPath)
	if err != nil {
		log.Printf("jurassic: no table for gas %s channel %g (looked for %s, %s)", gas, nu, binPath, ascPath)
		return &GasChannelTable{}, nil
	}
	defer f.Close()
	t, err := readASCIITable(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("jurassic: reading ascii table %s: %w", ascPath, err)
	}
	return t, nil
}

func tableFilename(base string, nu float64, gas, ext string) string {
	return fmt.Sprintf("%s_%.4f_%s.%s", base, nu, gas, ext)
}

// readBinaryTable decodes the following little-endian layout:
//
//	int32   np
//	float64 p[np]
//	int32   nt[np]
//	for each ip:
//	  float64 t[nt[ip]]
//	  int32   nu[nt[ip]]
//	  for each it:
//	    float32 u[nu[it]]
//	    float32 eps[nu[it]]
func readBinaryTable(r io.Reader) (*GasChannelTable, error) {
	var np int32
	if err := binary.Read(r, binary.LittleEndian, &np); err != nil {
		return nil, fmt.Errorf("reading np: %w", err)
	}
	if np < 0 || int(np) > maxTableRows {
		return nil, fmt.Errorf("table limit exceeded: np=%d", np)
	}
	t := &GasChannelTable{P: make([]float64, np)}
	if err := binary.Read(r, binary.LittleEndian, t.P); err != nil {
		return nil, fmt.Errorf("reading p: %w", err)
	}
	nt := make([]int32, np)
	if err := binary.Read(r, binary.LittleEndian, nt); err != nil {
		return nil, fmt.Errorf("reading nt: %w", err)
	}
	t.T = make([][]float64, np)
	t.U = make([][][]float32, np)
	t.Eps = make([][][]float32, np)
	for ip := range t.P {
		if nt[ip] < 0 || int(nt[ip]) > maxTableRows {
			return nil, fmt.Errorf("table limit exceeded: nt[%d]=%d", ip, nt[ip])
		}
		t.T[ip] = make([]float64, nt[ip])
		if err := binary.Read(r, binary.LittleEndian, t.T[ip]); err != nil {
			return nil, fmt.Errorf("reading t[%d]: %w", ip, err)
		}
		numU := make([]int32, nt[ip])
		if err := binary.Read(r, binary.LittleEndian, numU); err != nil {
			return nil, fmt.Errorf("reading nu[%d]: %w", ip, err)
		}
		t.U[ip] = make([][]float32, nt[ip])
		t.Eps[ip] = make([][]float32, nt[ip])
		for it := range t.T[ip] {
			if numU[it] < 0 || int(numU[it]) > maxTableRows {
				return nil, fmt.Errorf("table limit exceeded: nu[%d][%d]=%d", ip, it, numU[it])
			}
			t.U[ip][it] = make([]float32, numU[it])
			if err := binary.Read(r, binary.LittleEndian, t.U[ip][it]); err != nil {
				return nil, fmt.Errorf("reading u[%d][%d]: %w", ip, it, err)
			}
			t.Eps[ip][it] = make([]float32, numU[it])
			if err := binary.Read(r, binary.LittleEndian, t.Eps[ip][it]); err != nil {
				return nil, fmt.Errorf("reading eps[%d][%d]: %w", ip, it, err)
			}
		}
	}
	return t, nil
}

// readASCIITable parses the fallback "p t u eps" four-column format,
// grouping rows into the ragged structure by watching for value changes
// on each axis, exactly as forwardmodel.c's read_tbl ASCII branch does.
// Column-density rows beyond maxTableRows per cell are silently dropped
// (skipped without being appended) rather than
// treated as an error, preserving the original's silent-truncation
// behaviour.
func readASCIITable(r io.Reader) (*GasChannelTable, error) {
	t := &GasChannelTable{}
	sc := bufio.NewScanner(r)
	pOld, tOld, uOld, epsOld := nan, nan, nan, nan
	for sc.Scan() {
		line := sc.Text()
		var p, tt, u, eps float64
		n, err := fmt.Sscanf(line, "%g %g %g %g", &p, &tt, &u, &eps)
		if err != nil || n != 4 {
			continue
		}
		if p != pOld {
			t.P = append(t.P, p)
			t.T = append(t.T, nil)
			t.U = append(t.U, nil)
			t.Eps = append(t.Eps, nil)
			tOld = nan
			pOld = p
		}
		ip := len(t.P) - 1
		if tt != tOld {
			t.T[ip] = append(t.T[ip], tt)
			t.U[ip] = append(t.U[ip], nil)
			t.Eps[ip] = append(t.Eps[ip], nil)
			uOld, epsOld = nan, nan
			tOld = tt
		}
		it := len(t.T[ip]) - 1
		if u != uOld || eps != epsOld {
			if len(t.U[ip][it]) >= maxTableRows {
				continue // silently truncate, as the original does
			}
			t.U[ip][it] = append(t.U[ip][it], float32(u))
			t.Eps[ip][it] = append(t.Eps[ip][it], float32(eps))
			uOld, epsOld = u, eps
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(t.P) == 0 {
		return nil, fmt.Errorf("ascii table has no rows")
	}
	return t, nil
}
