package canon

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPython(t *testing.T) {
	cases := map[string]string{
		"tts/ticket.py/self (File)":                                "tts/ticket.py/module (Module)",
		"tts/ticket.py/Ticket/self (Class)":                        "tts/ticket.py/CLASSES/Ticket (Class)",
		"tts/ticket.py/Ticket/constructors/__init__ (Constructor)": "tts/ticket.py/CLASSES/Ticket/CONSTRUCTORS/__init__ (Constructor)",
		"tts/ticket.py/Ticket/methods/cancel (Method)":             "tts/ticket.py/CLASSES/Ticket/METHODS/cancel (Method)",
		"tts/ticket.py/Ticket/fields/price (Field)":                "tts/ticket.py/CLASSES/Ticket/FIELDS/price (Field)",
		"tts/ticket.py/functions/main (Function)":                  "tts/ticket.py/FUNCTIONS/main (Function)",
		"tts/ticket.py::main":                                      "tts/ticket.py/FUNCTIONS/main (Function)",
		"tts/ticket.py/-self Ticket (Class)":                       "tts/ticket.py/CLASSES/Ticket (Class)",
		"tts/ticket.py/+METHODS/Ticket/cancel (Method)":            "tts/ticket.py/CLASSES/Ticket/METHODS/cancel (Method)",
		"tts/ticket.py/+FIELDS/Ticket/price (Field)":               "tts/ticket.py/CLASSES/Ticket/FIELDS/price (Field)",
		"tts/ticket.py/+CONSTRUCTORS/Ticket/__init__ (Constructor)": "tts/ticket.py/CLASSES/Ticket/CONSTRUCTORS/__init__ (Constructor)",
		"tts/ticket.py/+FUNCTIONS/main (Function)":                 "tts/ticket.py/FUNCTIONS/main (Function)",
		"tts/ticket.py/+SUBCLASSES/Base/-self Ticket (Class)":      "tts/ticket.py/CLASSES/Ticket (Class)",
		"a.py/Outer/inner_classes/Inner/self (Class)":              "a.py/CLASSES/Outer.Inner (Class)",
		"a.py/Base/subclasses/Sub/methods/m (Method)":              "a.py/CLASSES/Sub/METHODS/m (Method)",
		"a.py/Outer/Inner/fields/x (Field)":                        "a.py/CLASSES/Outer.Inner/FIELDS/x (Field)",
	}
	for in, want := range cases {
		assert.Equal(t, want, Python(in), in)
	}
}

func TestPython_DirectoryNamesAreNotMarkers(t *testing.T) {
	cases := map[string]string{
		"app/functions/util.py/Helper/methods/run (Method)":       "app/functions/util.py/CLASSES/Helper/METHODS/run (Method)",
		"app/methods/util.py/Helper/fields/x (Field)":             "app/methods/util.py/CLASSES/Helper/FIELDS/x (Field)",
		"app/fields/util.py/functions/f (Function)":               "app/fields/util.py/FUNCTIONS/f (Function)",
		"app/constructors/util.py/Helper/self (Class)":            "app/constructors/util.py/CLASSES/Helper (Class)",
		"app/functions/util.py/self (File)":                       "app/functions/util.py/module (Module)",
		"app/+METHODS/util.py/+METHODS/Helper/run (Method)":       "app/+METHODS/util.py/CLASSES/Helper/METHODS/run (Method)",
		"app/methods/util.py/Outer/Inner/methods/run (Method)":    "app/methods/util.py/CLASSES/Outer.Inner/METHODS/run (Method)",
		"app/methods/util.py/Outer/-self Inner (Class)":           "app/methods/util.py/CLASSES/Outer.Inner (Class)",
		"app/methods/util.py/CLASSES/Helper/METHODS/run (Method)": "app/methods/util.py/CLASSES/Helper/METHODS/run (Method)",
	}
	for in, want := range cases {
		assert.Equal(t, want, Python(in), in)
		assert.Equal(t, want, Python(want), "fixed point: "+want)
	}
}

func TestPython_CanonicalIsFixedPoint(t *testing.T) {
	for _, name := range []string{
		"tts/ticket.py/module (Module)",
		"tts/ticket.py/CLASSES/Ticket (Class)",
		"tts/ticket.py/CLASSES/Ticket/METHODS/cancel (Method)",
		"tts/ticket.py/FUNCTIONS/main (Function)",
		"something else entirely",
		"",
	} {
		assert.Equal(t, name, Python(name))
	}
}

func TestJava(t *testing.T) {
	assert.Equal(t, "src/Shop.java/module (Module)", Java("src/Shop.java/self (File)"))
	assert.Equal(t, "src/Shop.java/Cart (Class)", Java("src/Shop.java/Shop/Cart/self (Class)"))
	assert.Equal(t, "src/Shop.java/Shop (Class)", Java("src/Shop.java/Shop (Class)"))
	assert.Equal(t, "src/Shop.java/Cart/methods/add (Method)", Java("src/Shop.java/Shop/Cart/methods/add (Method)"))
	assert.Equal(t, "not java", Java("not java"))
}

func TestNormalizer_Apply(t *testing.T) {
	n := Normalizer{
		Python:          true,
		StripPrefixes:   SplitPrefixes([]string{"proj/, build/"}),
		ExcludePrefixes: []string{"tests/"},
	}
	out := n.Apply([]Triple{
		{Src: "proj/a.py/A/methods/m (Method)", Tgt: "proj/a.py/A/self (Class)", Kind: "Create"},
		{Src: "proj/a.py/+METHODS/A/m (Method)", Tgt: "proj/a.py/-self A (Class)", Kind: "Create"},
		{Src: "tests/t.py/functions/f (Function)", Tgt: "a.py/functions/g (Function)", Kind: "Call"},
	})
	assert.Equal(t, []Triple{
		{Src: "a.py/CLASSES/A/METHODS/m (Method)", Tgt: "a.py/CLASSES/A (Class)", Kind: "Create"},
	}, out)
}
