// Package lib provides a Go SDK to verify IWSVA appliance updates programmatically
// and to read the stored verification history.
//
// The SDK runs the backend, log and business verification levels through an
// appliance [Probe]. The console (UI) level needs a browser and is only available
// from the consoleqa CLI.
//
// # Quick Start
//
//	client, err := lib.New(ctx, lib.Config{
//	    SSH: &lib.SSHConfig{Host: "iwsva.local", User: "root", Password: os.Getenv("IWSVA_ROOT_PASSWORD")},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	run, err := client.VerifyUpdate(ctx, "PTN", "6.600.00")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(run.ID, run.Report.Passed)
//
// # History
//
// Every verification is stored, passed or failed:
//
//	runs, _ := client.ListRuns(ctx, &lib.ListRunsOpts{ComponentID: "PTN"})
//	run, _ := client.GetRun(ctx, runs[0].ID)
//
// # Error Handling
//
// All methods return errors that can be inspected with [errors.Is]:
//
//   - [ErrNotFound]: the run or the component does not exist.
//   - [ErrAlreadyExists]: a run with the same ID already exists.
//   - [ErrNotValid]: invalid input (e.g. a rollback of a component without rollback).
//
// # Testing
//
// Any [Probe] implementation can replace the SSH connection, and a temporary
// database path isolates the history:
//
//	client, _ := lib.New(ctx, lib.Config{
//	    DBPath: filepath.Join(t.TempDir(), "test.db"),
//	    Probe:  myFakeAppliance,
//	})
//
// # Thread Safety
//
// A [Client] is safe for concurrent use from multiple goroutines. The underlying
// storage uses SQLite with WAL mode.
package lib
