package reading

import (
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/frankban/quicktest"
)

func TestTransform_KeysByPrimaryKey(t *testing.T) {
	c := quicktest.New(t)
	got, stats, err := Transform("id", []string{"id", "val"}, [][]interface{}{
		{int64(1), "a"},
		{int64(2), []byte("b")},
	})
	c.Assert(err, quicktest.IsNil)
	c.Assert(got, quicktest.DeepEquals, Reading{
		"1": {"val": "a"},
		"2": {"val": "b"},
	})
	c.Assert(stats, quicktest.Equals, Stats{Rows: 2})
}

func TestTransform_PrimaryKeyNotInColumns(t *testing.T) {
	c := quicktest.New(t)
	got, _, err := Transform("id", []string{"name", "val"}, [][]interface{}{{"x", "y"}})
	c.Assert(errors.Is(err, ErrPrimaryKeyNotFound), quicktest.IsTrue)
	c.Assert(got, quicktest.Not(quicktest.IsNil))
	c.Assert(got, quicktest.HasLen, 0)

	_, _, err = Transform("", []string{"id"}, nil)
	c.Assert(errors.Is(err, ErrPrimaryKeyNotFound), quicktest.IsTrue)
}

func TestTransform_SkipsMalformedRows(t *testing.T) {
	c := quicktest.New(t)
	got, stats, err := Transform("id", []string{"id", "val"}, [][]interface{}{
		{int64(1), "a"},
		{int64(2)},
		{int64(3), "c", "extra"},
	})
	c.Assert(err, quicktest.IsNil)
	c.Assert(got, quicktest.DeepEquals, Reading{"1": {"val": "a"}})
	c.Assert(stats.Skipped, quicktest.Equals, 2)
}

func TestTransform_DuplicateKeyLastWriteWins(t *testing.T) {
	c := quicktest.New(t)
	got, stats, err := Transform("id", []string{"id", "val"}, [][]interface{}{
		{int64(7), "first"},
		{"7", "second"},
	})
	c.Assert(err, quicktest.IsNil)
	c.Assert(got, quicktest.DeepEquals, Reading{"7": {"val": "second"}})
	c.Assert(stats.Overwritten, quicktest.Equals, 1)
}

func TestTransform_PrimaryKeyNotFirstColumn(t *testing.T) {
	c := quicktest.New(t)
	got, _, err := Transform("code", []string{"name", "code", "qty"}, [][]interface{}{
		{"bolt", "B-1", int64(10)},
	})
	c.Assert(err, quicktest.IsNil)
	c.Assert(got, quicktest.DeepEquals, Reading{"B-1": {"name": "bolt", "qty": "10"}})
}

func TestTransform_GeneratedRowSets(t *testing.T) {
	c := quicktest.New(t)
	faker := gofakeit.New(42)

	for round := 0; round < 20; round++ {
		columns := []string{"id", "name", "score", "active"}
		n := faker.Number(0, 50)
		rows := make([][]interface{}, 0, n)
		want := make(map[string]bool, n)
		for i := 0; i < n; i++ {
			id := int64(round*1000 + i)
			rows = append(rows, []interface{}{id, faker.Word(), faker.Float64(), faker.Bool()})
			want[strconv.FormatInt(id, 10)] = true
		}

		got, _, err := Transform("id", columns, rows)
		c.Assert(err, quicktest.IsNil)
		c.Assert(got, quicktest.HasLen, len(want))
		for i, row := range rows {
			key := String(row[0])
			c.Assert(want[key], quicktest.IsTrue)
			c.Assert(got[key], quicktest.DeepEquals, map[string]string{
				"name":   String(rows[i][1]),
				"score":  String(rows[i][2]),
				"active": String(rows[i][3]),
			})
		}
	}
}

func TestString(t *testing.T) {
	c := quicktest.New(t)
	c.Assert(String(nil), quicktest.Equals, Null)
	c.Assert(String([]byte("raw")), quicktest.Equals, "raw")
	c.Assert(String(int64(-3)), quicktest.Equals, "-3")
	c.Assert(String(uint64(3)), quicktest.Equals, "3")
	c.Assert(String(1.5), quicktest.Equals, "1.5")
	c.Assert(String(true), quicktest.Equals, "true")
	c.Assert(String(time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)), quicktest.Equals, "2024-05-06 07:08:09")
	c.Assert(String(struct{ A int }{1}), quicktest.Equals, "{1}")
}

func TestReadingKeysAndMap(t *testing.T) {
	c := quicktest.New(t)
	r := Reading{"b": {"x": "1"}, "a": {"x": "2"}}
	c.Assert(r.Keys(), quicktest.DeepEquals, []string{"a", "b"})
	c.Assert(r.Map(), quicktest.DeepEquals, map[string]interface{}{
		"a": map[string]interface{}{"x": "2"},
		"b": map[string]interface{}{"x": "1"},
	})
}
