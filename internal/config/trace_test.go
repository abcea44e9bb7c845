package config

import "testing"

func env(vars map[string]string) Lookup {
	return func(name string) (string, bool) {
		v, ok := vars[name]
		return v, ok
	}
}

func ptr(b bool) *bool { return &b }

func TestResolveTrace(t *testing.T) {
	tests := []struct {
		name     string
		explicit *bool
		vars     map[string]string
		file     *bool
		want     bool
	}{
		{"unset everywhere", nil, nil, nil, false},
		{"explicit true beats env", ptr(true), map[string]string{"V": ""}, nil, true},
		{"explicit false beats env", ptr(false), map[string]string{"V": "1"}, nil, false},
		{"non-empty env enables", nil, map[string]string{"V": "0"}, nil, true},
		{"empty env disables", nil, map[string]string{"V": ""}, ptr(true), false},
		{"unset env falls back to file", nil, nil, ptr(true), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveTrace(tt.explicit, "V", env(tt.vars), tt.file); got != tt.want {
				t.Errorf("ResolveTrace = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResolve_DefaultVariables(t *testing.T) {
	got := Resolve(Overrides{}, env(map[string]string{DefaultInterruptEnv: "yes"}), nil)
	if !got.Interrupt || got.Exception {
		t.Errorf("Resolve = %+v, want interrupt only", got)
	}
}

func TestResolve_RenamedVariables(t *testing.T) {
	cfg := &Config{Trace: TraceConfig{ExceptionEnv: "APP_DEBUG"}}
	lookup := env(map[string]string{"APP_DEBUG": "1", DefaultExceptionEnv: ""})
	if got := Resolve(Overrides{}, lookup, cfg); !got.Exception {
		t.Errorf("Resolve = %+v, want exception trace from APP_DEBUG", got)
	}

	o := Overrides{InterruptEnv: "APP_SIGINT"}
	lookup = env(map[string]string{"APP_SIGINT": "1"})
	if got := Resolve(o, lookup, cfg); !got.Interrupt {
		t.Errorf("Resolve = %+v, want interrupt trace from APP_SIGINT", got)
	}
}

func TestResolve_ExplicitOverrides(t *testing.T) {
	cfg := &Config{Trace: TraceConfig{Interrupt: ptr(true), Exception: ptr(true)}}
	o := Overrides{Interrupt: ptr(false)}
	got := Resolve(o, env(nil), cfg)
	if got.Interrupt || !got.Exception {
		t.Errorf("Resolve = %+v, want {Interrupt:false Exception:true}", got)
	}
}
