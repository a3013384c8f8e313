package template

import "testing"

func TestRender(t *testing.T) {
	cases := []struct {
		name string
		body string
		vars map[string]string
		want string
	}{
		{
			name: "basic substitution",
			body: "Hi {name}, salary {salary_amount} due on {due_date}",
			vars: map[string]string{"name": "Asha", "salary_amount": "12000", "due_date": "2026-09-01"},
			want: "Hi Asha, salary 12000 due on 2026-09-01",
		},
		{
			name: "unknown placeholder left verbatim",
			body: "Hi {name}, your code is {code}",
			vars: map[string]string{"name": "Ravi"},
			want: "Hi Ravi, your code is {code}",
		},
		{
			name: "repeated placeholder",
			body: "{name} {name}",
			vars: map[string]string{"name": "x"},
			want: "x x",
		},
		{
			name: "no variables",
			body: "plain text",
			vars: nil,
			want: "plain text",
		},
		{
			name: "braces without match stay literal",
			body: "set {a} and {unset}",
			vars: map[string]string{"a": "1"},
			want: "set 1 and {unset}",
		},
		{
			name: "value containing braces is not re-expanded",
			body: "{a} {b}",
			vars: map[string]string{"a": "{b}", "b": "2"},
			want: "{b} 2",
		},
		{
			name: "prefix keys resolve longest first",
			body: "{id} {ids}",
			vars: map[string]string{"id": "one", "ids": "many"},
			want: "one many",
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := Render(c.body, c.vars)
			if got != c.want {
				t.Errorf("Render(%q) = %q, want %q", c.body, got, c.want)
			}
		})
	}
}

func TestRenderIdempotent(t *testing.T) {
	body := "Hi {name}, due {due_date}"
	vars := map[string]string{"name": "Asha", "due_date": "tomorrow"}
	once := Render(body, vars)
	twice := Render(once, vars)
	if once != twice {
		t.Errorf("render not idempotent: %q != %q", once, twice)
	}
}
