package source

import (
	"errors"
	"reflect"
	"testing"
)

type mapLoader map[string]string

func (m mapLoader) Load(name string) ([]byte, error) {
	if s, ok := m[name]; ok {
		return []byte(s), nil
	}
	return nil, errors.New("not found")
}

func TestSplitClientSide(t *testing.T) {
	server, client := SplitClientSide("a;" + LineSep + "//#CLIENTSIDE" + LineSep + "b;")
	if server != "a;"+LineSep || client != LineSep+"b;" {
		t.Fatalf("split = %q / %q", server, client)
	}
	server, client = SplitClientSide("only server")
	if server != "only server" || client != "" {
		t.Fatalf("no marker split = %q / %q", server, client)
	}
}

func TestExpandJoins(t *testing.T) {
	assets := mapLoader{"util.txt": "x = 1;\r\ny = 2;"}

	got, missing := ExpandJoins("a;join util;b;", assets)
	if got != "a;x = 1;"+LineSep+"y = 2;b;" || len(missing) != 0 {
		t.Fatalf("expanded = %q missing=%v", got, missing)
	}

	got, missing = ExpandJoins("join gone;c;", assets)
	if got != "c;" || !reflect.DeepEqual(missing, []string{"gone"}) {
		t.Fatalf("missing join = %q %v", got, missing)
	}

	prose := `say("please join the guild; now");`
	if got, _ := ExpandJoins(prose, assets); got != prose {
		t.Fatalf("prose rewritten: %q", got)
	}
	if got, _ := ExpandJoins("join util", assets); got != "join util" {
		t.Fatalf("unterminated join rewritten: %q", got)
	}
}

func TestExpandJoinsNotRecursive(t *testing.T) {
	assets := mapLoader{"a.txt": "join b;", "b.txt": "deep"}
	got, _ := ExpandJoins("join a;", assets)
	if got != "join b;" {
		t.Fatalf("joined text rescanned: %q", got)
	}
}

func TestWeaponName(t *testing.T) {
	tests := map[string]string{
		"if (created) toweapons Bomb Shop;": "Bomb Shop",
		"toweapons  Sword }":                "Sword",
		"toweapons unterminated":            "",
		"no weapon here;":                   "",
	}
	for code, want := range tests {
		if got := WeaponName(code); got != want {
			t.Fatalf("WeaponName(%q) = %q, want %q", code, got, want)
		}
	}
}

func TestPrepare(t *testing.T) {
	raw := "//#BLOCKPOSITIONUPDATES" + LineSep + "srv();" + LineSep + "//#CLIENTSIDE" + LineSep + "toweapons Lamp;"

	t.Run("npc server", func(t *testing.T) {
		src := Prepare(raw, Options{HasNPCServer: true, Trim: true}, nil)
		if src.Server == "" || src.Client == "" {
			t.Fatalf("halves = %q / %q", src.Server, src.Client)
		}
		if !src.BlockPositionUpdates {
			t.Fatal("server-side block marker ignored")
		}
		if src.ServerFormatted != "srv();"+LineSep {
			t.Fatalf("server formatted = %q", src.ServerFormatted)
		}
		if src.ClientFormatted != "toweapons Lamp;"+LineSep {
			t.Fatalf("client formatted = %q", src.ClientFormatted)
		}
		if src.WeaponName != "Lamp" {
			t.Fatalf("weapon = %q", src.WeaponName)
		}
	})

	t.Run("no npc server", func(t *testing.T) {
		src := Prepare(raw, Options{}, nil)
		if src.Server != "" || src.Client != raw {
			t.Fatalf("halves = %q / %q", src.Server, src.Client)
		}
		if !src.BlockPositionUpdates {
			t.Fatal("client-side block marker ignored")
		}
		if src.ClientFormatted != "" {
			t.Fatal("formatted without trim")
		}
	})

	t.Run("level hack", func(t *testing.T) {
		src := Prepare("sparringzone"+LineSep+"//#CLIENTSIDE"+LineSep+"x;", Options{HasNPCServer: true}, nil)
		if !src.SparringZone || src.Singleplayer {
			t.Fatal("sparring zone not detected")
		}
		if src.Server != src.Client {
			t.Fatal("level hack script split")
		}
		if !Prepare("singleplayer", Options{}, nil).Singleplayer {
			t.Fatal("singleplayer not detected")
		}
		if Prepare("sparring", Options{}, nil).SparringZone {
			t.Fatal("short text treated as directive")
		}
	})

	t.Run("missing joins", func(t *testing.T) {
		src := Prepare("join a;//#CLIENTSIDE join b;", Options{HasNPCServer: true}, mapLoader{})
		if !reflect.DeepEqual(src.MissingJoins, []string{"a", "b"}) {
			t.Fatalf("missing = %v", src.MissingJoins)
		}
	})
}
