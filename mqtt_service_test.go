package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestRunService_MQTTWithoutBroker(t *testing.T) {
	t.Setenv("MQTT_BROKER", "")

	app := NewApp()
	app.ConfigFile = writeExperimentFiles(t, t.TempDir(), 5)
	app.MqttMode = true

	err := app.RunService()
	if err == nil {
		t.Fatal("expected error without a broker")
	}
	if !strings.Contains(err.Error(), "MQTT broker not configured") {
		t.Errorf("unexpected error: %v", err)
	}
	if app.MQTTClient != nil {
		t.Error("no client should be created")
	}
}

func TestRunService_LoadsCachedResults(t *testing.T) {
	t.Setenv("MQTT_BROKER", "")

	dir := t.TempDir()
	first := NewApp()
	first.ConfigFile = writeExperimentFiles(t, dir, 5)
	if err := first.RunExperiment(); err != nil {
		t.Fatalf("RunExperiment failed: %v", err)
	}

	// the MQTT check fails after the cache has been loaded
	app := NewApp()
	app.ConfigFile = first.ConfigFile
	app.MqttMode = true
	_ = app.RunService()

	if app.StateTracker.GetResult() == nil {
		t.Error("cached results should be loaded into the state tracker")
	}
}

func TestRun_HelpListsServiceFlags(t *testing.T) {
	var out bytes.Buffer
	_ = run([]string{"--help"}, &out, newMockApp())

	for _, flag := range []string{"-mqtt", "-http", "-http-port", "-positions", "-levels"} {
		if !strings.Contains(out.String(), flag) {
			t.Errorf("expected --help output to contain %s", flag)
		}
	}
	if !strings.Contains(out.String(), "Publish robot positions") {
		t.Error("expected --help output to describe MQTT publishing")
	}
}
