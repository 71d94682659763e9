package dtd_test

import (
	"fmt"
	"strings"
	"testing/fstest"

	"github.com/jacoelho/dtd"
	"github.com/jacoelho/dtd/errors"
)

func ExampleValidate() {
	doc := `<?xml version="1.0"?>
<!DOCTYPE note [
  <!ELEMENT note (to, body)>
  <!ELEMENT to (#PCDATA)>
  <!ELEMENT body (#PCDATA)>
]>
<note><to>Tove</to><body>Don't forget me this weekend!</body></note>`

	if err := dtd.Validate(strings.NewReader(doc)); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Println("Validation passed!")
	// Output: Validation passed!
}

func ExampleValidator_ValidateFS() {
	fsys := fstest.MapFS{
		"notes/note.xml": &fstest.MapFile{Data: []byte(`<?xml version="1.0"?>
<!DOCTYPE note SYSTEM "note.dtd">
<note><body>missing recipient</body></note>`)},
		"notes/note.dtd": &fstest.MapFile{Data: []byte(`<!ELEMENT note (to, body)>
<!ELEMENT to (#PCDATA)>
<!ELEMENT body (#PCDATA)>`)},
	}

	v, err := dtd.New(dtd.NewOptions())
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	err = v.ValidateFS(fsys, "notes/note.xml")
	if violations, ok := errors.AsValidations(err); ok {
		for _, violation := range violations {
			fmt.Println(violation.Code)
		}
		return
	}
	fmt.Printf("Error: %v\n", err)
	// Output: vc-element-valid.children
}
