package bookkeeping

import (
	"testing"
)

func TestRecordWriter(t *testing.T) {
	usd := MustCommodityOf("USD")
	testCases := []struct {
		name  string
		build func(w *recordWriter)
		want  string
	}{
		{
			name:  "empty",
			build: func(w *recordWriter) {},
			want:  `{}`,
		},
		{
			name: "keys in insertion order",
			build: func(w *recordWriter) {
				w.Set("z", 1).Set("a", "hello")
			},
			want: `{"z":1,"a":"hello"}`,
		},
		{
			name: "overwrite keeps position",
			build: func(w *recordWriter) {
				w.Set("a", 1).Set("b", 2).Set("a", 3)
			},
			want: `{"a":3,"b":2}`,
		},
		{
			name: "merge raw object",
			build: func(w *recordWriter) {
				w.Set("a", 1)
				w.MergeRaw([]byte(`{"c":3, "d":[4, 5]}`))
				w.Set("b", 2)
			},
			want: `{"a":1,"c":3,"d":[4, 5],"b":2}`,
		},
		{
			name: "zero values skipped",
			build: func(w *recordWriter) {
				w.Set("a", 0)
				w.SetNonZero("b", "")
				w.SetNonZero("c", false)
				w.SetNonZero("d", "memo")
			},
			want: `{"a":0,"d":"memo"}`,
		},
		{
			name: "merge money",
			build: func(w *recordWriter) {
				w.Set("kind", "x")
				m := M("12.5", usd)
				w.Merge(&m)
			},
			want: `{"kind":"x","amount":12.50,"commodity":"USD"}`,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var w recordWriter
			tc.build(&w)
			got, err := w.MarshalJSON()
			if err != nil {
				t.Fatalf("MarshalJSON() error = %v", err)
			}
			if string(got) != tc.want {
				t.Errorf("MarshalJSON() = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestRecordWriterMergeNonObject(t *testing.T) {
	var w recordWriter
	w.MergeRaw([]byte(`[1,2]`))
	if _, err := w.MarshalJSON(); err == nil {
		t.Error("MarshalJSON() after merging an array: want error")
	}
}
