package main

import "testing"

func TestRootCommand_Subcommands(t *testing.T) {
	t.Parallel()

	root := rootCommand()
	for _, name := range []string{"serve", "run", "lock"} {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Fatalf("missing subcommand %q: %v", name, err)
		}
	}

	run, _, _ := root.Find([]string{"run"})
	if run.Flags().Lookup("json") == nil {
		t.Fatalf("run must expose --json")
	}
}
