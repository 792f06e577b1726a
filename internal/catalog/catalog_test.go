package catalog

import (
	"path/filepath"
	"testing"
	"time"

	. "github.com/onsi/gomega"
)

func openTest(t *testing.T) *Catalog {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestRecordAndGet(t *testing.T) {
	g := NewWithT(t)
	c := openTest(t)

	created := time.Unix(1700000000, 0)
	id, err := c.Record(RunRow{
		RunID:      "small_1",
		Input:      "small.fld",
		Output:     "out.fld",
		Steps:      5,
		StepsTaken: 5,
		PPM:        204,
		Particles:  4800,
		Elapsed:    0.25,
		Metrics:    map[string]float64{"max_speed": 0.5},
		CreatedAt:  created,
	})
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(id).To(BeNumerically(">", 0))

	r, err := c.Get("small_1")
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(r).NotTo(BeNil())
	g.Expect(r.ID).To(Equal(id))
	g.Expect(r.PPM).To(Equal(204.0))
	g.Expect(r.Particles).To(Equal(4800))
	g.Expect(r.Metrics).To(HaveKeyWithValue("max_speed", 0.5))
	g.Expect(r.CreatedAt.Equal(created)).To(BeTrue())
}

func TestGetMissing(t *testing.T) {
	c := openTest(t)

	r, err := c.Get("nope")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if r != nil {
		t.Errorf("expected nil run, got %+v", r)
	}
}

func TestDuplicateRunID(t *testing.T) {
	c := openTest(t)

	if _, err := c.Record(RunRow{RunID: "dup"}); err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if _, err := c.Record(RunRow{RunID: "dup"}); err == nil {
		t.Error("expected unique constraint error")
	}
}

func TestRecent(t *testing.T) {
	g := NewWithT(t)
	c := openTest(t)

	base := time.Unix(1700000000, 0)
	for i, name := range []string{"a", "b", "c"} {
		_, err := c.Record(RunRow{RunID: name, CreatedAt: base.Add(time.Duration(i) * time.Minute)})
		g.Expect(err).NotTo(HaveOccurred())
	}

	runs, err := c.Recent(2)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(runs).To(HaveLen(2))
	g.Expect(runs[0].RunID).To(Equal("c"))
	g.Expect(runs[1].RunID).To(Equal("b"))

	all, err := c.Recent(0)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(all).To(HaveLen(3))

	g.Expect(c.Delete("c")).To(Succeed())
	g.Expect(c.Delete("c")).To(Succeed())
	all, err = c.Recent(0)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(all).To(HaveLen(2))
}

func TestReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")

	c, err := Open(path)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if _, err := c.Record(RunRow{RunID: "persisted"}); err != nil {
		t.Fatalf("record failed: %v", err)
	}
	c.Close()

	c, err = Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer c.Close()

	r, err := c.Get("persisted")
	if err != nil || r == nil {
		t.Fatalf("expected persisted run, got %v, %v", r, err)
	}
	if r.Metrics != nil {
		t.Errorf("expected nil metrics, got %v", r.Metrics)
	}
}
