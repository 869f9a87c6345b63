// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.19
//

package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	m "github.com/mkhts/gortkqc"
)

func main() {

	// Parse command line arguments
	args, err := parseArgs()
	if err != nil {
		m.PrintE(err)
		flag.Usage()
		os.Exit(1)
	}

	// Run the main application
	if err := runApplication(args); err != nil {
		m.PrintE(err)
		os.Exit(1)
	}
}

// Main application processing
func runApplication(args cmdOpt) error {

	// Build the gate
	opt := m.NewQcOpt()
	if len(args.cfgFn) > 0 {
		var err error
		opt, err = m.LoadQcOpt(args.cfgFn)
		if err != nil {
			return errors.Wrap(err, "failed to load config")
		}
	}
	if len(args.bands) > 0 {
		opt.Bands = args.bands
	}
	tOpt := m.NewTrackerOpt()
	tOpt.ElevMaskRef = args.elevMaskRef
	tOpt.ElevMaskDescending = args.elevMaskDesc
	solver := m.NewSolver(opt, tOpt)

	// Open input
	in, err := openInput(args)
	if err != nil {
		return errors.Wrap(err, "failed to open input")
	}
	defer in.Close()

	// Prepare output file
	out, err := prepareOutput(args)
	if err != nil {
		return errors.Wrap(err, "failed to prepare output")
	}
	defer closeOutput(out)

	// Print header
	if !args.noHeader {
		printHeader(out, os.Args[0], args, solver)
	}

	// Process epochs
	return processEpochs(args, solver, in, out)
}

// Replay the epochs of a JSON-lines file, one EpochInput per line
func processEpochs(args cmdOpt, solver *m.Solver, in io.Reader, out io.Writer) error {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		if len(sc.Bytes()) == 0 || sc.Bytes()[0] == '%' {
			continue
		}
		var epoch m.EpochInput
		if err := json.Unmarshal(sc.Bytes(), &epoch); err != nil {
			return errors.Wrapf(err, "line %d", line)
		}
		res, err := solver.ProcessEpoch(&epoch)
		if err != nil {
			return errors.Wrapf(err, "line %d", line)
		}
		if m.DBG_ >= 1 {
			m.PrintB(res.Time, "%s fix=%d unres=%d%s\n", res.State, res.NumFixed, res.NumUnresolved, res.Details)
		}
		printResult(out, res, args.details)
	}
	return errors.Wrap(sc.Err(), "failed to read input")
}

func openInput(args cmdOpt) (io.ReadCloser, error) {
	if len(args.inFn) == 0 || args.inFn == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(args.inFn)
}

func prepareOutput(args cmdOpt) (io.WriteCloser, error) {

	// Use stdout if no output file is specified
	if len(args.outFn) == 0 {
		return &nopCloser{os.Stdout}, nil
	}

	// Create output file
	f, err := os.Create(args.outFn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create output file")
	}
	return f, nil
}

func closeOutput(out io.WriteCloser) {
	if out != nil {
		out.Close()
	}
}

// nopCloser - WriteCloser that ignores close operations
type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

// Structure to hold command line argument information
type cmdOpt struct {
	inFn         string
	outFn        string
	cfgFn        string
	noHeader     bool
	details      bool
	bands        m.BandVar
	elevMaskRef  float64
	elevMaskDesc float64
}

// Parse command line arguments
func parseArgs() (a cmdOpt, err error) {
	flag.Usage = func() {
		m.PrintA(`
[Usage]
	%s [Options] epochs.jsonl
	%s [Options] < epochs.jsonl

[Options]
`, filepath.Base(os.Args[0]), filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	tOpt := m.NewTrackerOpt()
	flag.StringVar(&a.cfgFn, "c", "", "Threshold override file (.json). Omitted thresholds keep their defaults.")
	flag.StringVar(&a.outFn, "o", "", "Output file path. If not specified, output to stdout.")
	flag.BoolVar(&a.noHeader, "nh", false, "Do not output header section.")
	flag.BoolVar(&a.details, "d", false, "Append the decision details to each line.")
	flag.Var(&a.bands, "b", "Bands to solve. Comma-separated without spaces like GPS_L1,BDS_B1. Default: GPS_L1,GPS_L2,BDS_B1,BDS_B2,GLO_G1,GLO_G2")
	flag.Float64Var(&a.elevMaskRef, "em", tOpt.ElevMaskRef, "Minimum elevation of a reference satellite [deg]")
	flag.Float64Var(&a.elevMaskDesc, "ed", tOpt.ElevMaskDescending, "Ambiguities of satellites below this elevation are dropped [deg]")
	var dbg int
	flag.IntVar(&dbg, "x", 0, "Debug information display. Specify level value. 0(OFF), 1(display), 2(detailed display), 3(more detailed), 4(most detailed)")
	flag.Parse()
	switch flag.NArg() {
	case 0:
	case 1:
		a.inFn = flag.Arg(0)
	default:
		return a, errors.New("too many arguments")
	}
	if a.elevMaskDesc > a.elevMaskRef {
		return a, errors.Errorf("descending mask %.1f is above the reference mask %.1f", a.elevMaskDesc, a.elevMaskRef)
	}
	m.DBG_ = dbg
	return
}

// Print header
func printHeader(out io.Writer, cmd string, args cmdOpt, solver *m.Solver) {
	fmt.Fprintf(out, "%% program   : %s\n", filepath.Base(cmd))
	fmt.Fprintf(out, "%% session   : %s\n", solver.ID)
	if len(args.inFn) > 0 {
		fmt.Fprintf(out, "%% inp file  : %s\n", args.inFn)
	}
	if len(args.cfgFn) > 0 {
		fmt.Fprintf(out, "%% config    : %s\n", args.cfgFn)
	}
	bands := solver.Opt().Bands
	fmt.Fprintf(out, "%% bands     : %s\n", bands.String())
	fmt.Fprintf(out, "%%  GPST                    Q  state               safe nfix unres  new      ratio rst slp rec     std-x(m)   std-y(m)   std-z(m)\n")
}

// Print the decisions of one epoch
func printResult(out io.Writer, res *m.EpochResult, details bool) {
	t := m.GTime{
		Week: res.Time.Week,
		Sec:  math.Round(res.Time.Sec*1000) / 1000,
	}
	tStr := t.ToTime().UTC().Format("2006/01/02 15:04:05.000")
	Q := 2
	if res.Safe {
		Q = 1
	}
	fmt.Fprintf(out, "%s %3d  %-18s %5t %4d %5d %4d %10.1f %3d %3d %3d %10.4f %10.4f %10.4f",
		tStr, Q, res.State, res.Safe, res.NumFixed, res.NumUnresolved, res.NewFixed, res.Ratio,
		b2i(res.Reset), b2i(res.Slip), b2i(res.NeedRecursion), res.Std.X, res.Std.Y, res.Std.Z)
	if details {
		fmt.Fprintf(out, "  %s", res.Details)
	}
	fmt.Fprintln(out)
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}
