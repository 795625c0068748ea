package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gorcon/rcon"
	"github.com/gorcon/rcon/rcontest"

	"github.com/mcconsole/mcconsole-go/internal/config"
	"github.com/mcconsole/mcconsole-go/pkg/mcconsole"
)

// execute runs the root command with args in an isolated config
// environment and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Chdir(t.TempDir())

	origCfg, origFile := appConfig, cfgFile
	t.Cleanup(func() {
		appConfig, cfgFile = origCfg, origFile
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})
	cfgFile = ""

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version error = %v", err)
	}
	if !strings.HasPrefix(out, "mcconsole dev (commit: none") {
		t.Errorf("version output = %q", out)
	}
}

func TestTypesCommand(t *testing.T) {
	out, err := execute(t, "types")
	if err != nil {
		t.Fatalf("types error = %v", err)
	}
	if got := strings.Fields(out); strings.Join(got, ",") != strings.Join(ValidEventTypeNames(), ",") {
		t.Errorf("types output = %q", out)
	}
}

func TestConfigShow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mc.yaml")
	if err := os.WriteFile(path, []byte("server:\n  jar: paper.jar\noutput:\n  format: pretty\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(config.EnvRCONPassword, "s3cret")

	out, err := execute(t, "--config", path, "config", "show")
	if err != nil {
		t.Fatalf("config show error = %v", err)
	}
	for _, want := range []string{"jar: paper.jar", "format: pretty", "java: java"} {
		if !strings.Contains(out, want) {
			t.Errorf("config show missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "s3cret") {
		t.Errorf("config show leaked a secret:\n%s", out)
	}
	if appConfig.Server.Jar != "paper.jar" {
		t.Errorf("appConfig.Server.Jar = %q", appConfig.Server.Jar)
	}
}

func TestConfigDefaults(t *testing.T) {
	out, err := execute(t, "config", "defaults")
	if err != nil {
		t.Fatalf("config defaults error = %v", err)
	}
	if !strings.Contains(out, "stop_timeout_seconds: 60") {
		t.Errorf("config defaults output:\n%s", out)
	}
}

func TestInvalidConfigFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("output:\n  format: xml\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := execute(t, "--config", path, "version")
	if err == nil || !config.IsValidationError(err) {
		t.Errorf("expected validation error, got: %v", err)
	}
}

func TestSendCommand(t *testing.T) {
	server := rcontest.NewServer(
		rcontest.SetSettings(rcontest.Settings{Password: "pw"}),
		rcontest.SetCommandHandler(func(c *rcontest.Context) {
			reply := "Unknown command"
			if c.Request().Body() == "list" {
				reply = "There are 0 of a max of 20 players online: "
			}
			_, _ = rcon.NewPacket(rcon.SERVERDATA_RESPONSE_VALUE, c.Request().ID, reply).WriteTo(c.Conn())
		}),
	)
	defer server.Close()
	t.Setenv(config.EnvRCONPassword, "pw")

	out, err := execute(t, "send", "--rcon", server.Addr(), "list")
	if err != nil {
		t.Fatalf("send error = %v", err)
	}
	if !strings.Contains(out, "There are 0 of a max of 20 players online") {
		t.Errorf("send output = %q", out)
	}
}

func TestSendWithoutAddress(t *testing.T) {
	origAddr := sendAddr
	t.Cleanup(func() { sendAddr = origAddr })
	sendAddr = ""

	err := runSend(sendCmd, []string{"list"})
	if err == nil || !strings.Contains(err.Error(), "no RCON address") {
		t.Errorf("expected missing address error, got: %v", err)
	}
}

func TestServerOptionsRequireJar(t *testing.T) {
	origJar := runJar
	t.Cleanup(func() { runJar = origJar })
	runJar = ""

	_, err := serverOptions()
	if !errors.Is(err, mcconsole.ErrNoServerJar) {
		t.Errorf("expected ErrNoServerJar, got: %v", err)
	}

	runJar = "server.jar"
	opts, err := serverOptions()
	if err != nil {
		t.Fatalf("serverOptions() error = %v", err)
	}
	if len(opts) == 0 {
		t.Error("serverOptions() returned no options")
	}
}

func TestOutputFormatFallsBackToConfig(t *testing.T) {
	orig := appConfig
	t.Cleanup(func() { appConfig = orig })

	appConfig = config.Default()
	appConfig.Output.Format = "yaml"

	got, err := outputFormat("")
	if err != nil || got != "yaml" {
		t.Errorf("outputFormat(\"\") = %q, %v", got, err)
	}
	got, err = outputFormat("pretty")
	if err != nil || got != "pretty" {
		t.Errorf("outputFormat(\"pretty\") = %q, %v", got, err)
	}
	if _, err := outputFormat("csv"); err == nil {
		t.Error("expected error for csv")
	}
}

func TestForwardCommandsNotRunning(t *testing.T) {
	srv := mcconsole.New()
	// An idle server rejects commands; forwarding logs and keeps reading
	// until EOF.
	forwardCommands(context.Background(), srv, strings.NewReader("say hi\n\nlist\n"))
	if srv.State() != mcconsole.StateIdle {
		t.Errorf("state = %s, want idle", srv.State())
	}
}
