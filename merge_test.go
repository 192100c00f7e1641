package publipostage

import (
	"reflect"
	"testing"
)

func TestBuildRenderRequest(t *testing.T) {
	t.Parallel()

	tpl := Template{
		Body: "<p>Bonjour {{prenom}} {{nom}}</p>",
		CSS:  ".contenu { color: {{couleur}}; }",
	}
	row := Row{"prenom": "Alice", "nom": "Martin", "couleur": "black"}
	assets := Assets{Logo: "data:image/png;base64,AAAA", ServiceName: "Service"}

	req := BuildRenderRequest(tpl, row, assets, "lettre_{nom}", 1)

	if req.Body != "<p>Bonjour Alice Martin</p>" {
		t.Errorf("Body = %q", req.Body)
	}
	if req.CSS != ".contenu { color: black; }" {
		t.Errorf("CSS = %q", req.CSS)
	}
	if req.Filename != "lettre_Martin.pdf" {
		t.Errorf("Filename = %q", req.Filename)
	}
	if req.Assets != assets {
		t.Errorf("Assets = %+v, want passed through unchanged", req.Assets)
	}
}

func TestBuildRenderRequestDeterministic(t *testing.T) {
	t.Parallel()

	tpl := Template{Body: "<p>{{a}}</p>", CSS: "p {}"}
	row := Row{"a": "x", "b": float64(3)}
	assets := Assets{ServiceName: "S"}

	first := BuildRenderRequest(tpl, row, assets, "{a}_{index}", 2)
	second := BuildRenderRequest(tpl, row, assets, "{a}_{index}", 2)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("requests differ for identical inputs: %+v vs %+v", first, second)
	}
}
