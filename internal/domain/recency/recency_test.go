package recency_test

import (
	"sync"
	"testing"

	"github.com/okian/kunstquiz/internal/domain/recency"
	. "github.com/smartystreets/goconvey/convey"
)

func TestWindow(t *testing.T) {
	Convey("Given a new Window", t, func() {
		Convey("When created with defaults", func() {
			w := recency.New()

			Convey("Then it remembers three keys and starts empty", func() {
				So(w.Capacity(), ShouldEqual, recency.DefaultCapacity)
				So(w.Len(), ShouldEqual, 0)
				So(w.Contains("Munch"), ShouldBeFalse)
			})
		})

		Convey("When adding more keys than the capacity", func() {
			w := recency.New(recency.WithCapacity(3))
			for _, k := range []string{"Munch", "Dahl", "Backer", "Krohg"} {
				w.Add(k, w.Capacity())
			}

			Convey("Then the oldest key is evicted first", func() {
				So(w.Len(), ShouldEqual, 3)
				So(w.Contains("Munch"), ShouldBeFalse)
				So(w.Keys(), ShouldResemble, []string{"Krohg", "Backer", "Dahl"})
			})
		})

		Convey("When re-adding a remembered key", func() {
			w := recency.New()
			for _, k := range []string{"Munch", "Dahl", "Backer", "Munch", "Krohg"} {
				w.Add(k, w.Capacity())
			}

			Convey("Then it moves to the front instead of duplicating", func() {
				So(w.Keys(), ShouldResemble, []string{"Krohg", "Munch", "Backer"})
			})
		})

		Convey("When adding with a tighter limit", func() {
			w := recency.New()
			w.Add("Munch", 3)
			w.Add("Dahl", 3)
			w.Add("Backer", 1)

			Convey("Then only the newest keys up to the limit remain", func() {
				So(w.Keys(), ShouldResemble, []string{"Backer"})
			})
		})

		Convey("When the limit exceeds the capacity", func() {
			w := recency.New(recency.WithCapacity(2))
			for _, k := range []string{"a", "b", "c"} {
				w.Add(k, 10)
			}

			Convey("Then the capacity still bounds the window", func() {
				So(w.Len(), ShouldEqual, 2)
			})
		})

		Convey("When the capacity is zero", func() {
			w := recency.New(recency.WithCapacity(0))
			w.Add("Munch", 3)

			Convey("Then nothing is remembered", func() {
				So(w.Len(), ShouldEqual, 0)
			})
		})

		Convey("When clearing", func() {
			w := recency.New()
			w.Add("Munch", 3)
			w.Add("Dahl", 3)
			w.Clear()

			Convey("Then every key is forgotten", func() {
				So(w.Len(), ShouldEqual, 0)
				So(w.Keys(), ShouldBeEmpty)
				So(w.Contains("Dahl"), ShouldBeFalse)
			})
		})

		Convey("When used from several goroutines", func() {
			w := recency.New(recency.WithCapacity(5))
			var wg sync.WaitGroup
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					for j := 0; j < 100; j++ {
						w.Add(string(rune('a'+(i+j)%10)), 5)
						_ = w.Contains("a")
					}
				}(i)
			}
			wg.Wait()

			Convey("Then the bound holds", func() {
				So(w.Len(), ShouldBeLessThanOrEqualTo, 5)
				So(len(w.Keys()), ShouldEqual, w.Len())
			})
		})
	})
}
