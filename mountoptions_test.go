// Copyright 2015 Google Inc. All Rights Reserved.

package fuse

import "testing"

func TestParseOptionsRecognized(t *testing.T) {
	cfg := &MountConfig{}
	if err := ParseOptions("ro,fsname=mymount,allow_other", cfg); err != nil {
		t.Fatalf("ParseOptions: %v", err)
	}
	if !cfg.ReadOnly {
		t.Errorf("ReadOnly = false, want true")
	}
	if cfg.FSName != "mymount" {
		t.Errorf("FSName = %q, want %q", cfg.FSName, "mymount")
	}
	if _, ok := cfg.Options["allow_other"]; !ok {
		t.Errorf("Options[allow_other] missing")
	}
}

func TestParseOptionsUnknown(t *testing.T) {
	cfg := &MountConfig{}
	if err := ParseOptions("bogus", cfg); err == nil {
		t.Errorf("ParseOptions(bogus) succeeded, want error")
	}
}

func TestParseOptionsMissingArg(t *testing.T) {
	cfg := &MountConfig{}
	if err := ParseOptions("fsname", cfg); err == nil {
		t.Errorf("ParseOptions(fsname) succeeded, want error for missing value")
	}
}

func TestParseOptionsUnexpectedArg(t *testing.T) {
	cfg := &MountConfig{}
	if err := ParseOptions("ro=true", cfg); err == nil {
		t.Errorf("ParseOptions(ro=true) succeeded, want error for unexpected value")
	}
}

func TestParseOptionsIgnoresBlankEntries(t *testing.T) {
	cfg := &MountConfig{}
	if err := ParseOptions(" ro ,, ", cfg); err != nil {
		t.Fatalf("ParseOptions: %v", err)
	}
	if !cfg.ReadOnly {
		t.Errorf("ReadOnly = false, want true")
	}
}
