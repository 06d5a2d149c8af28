package cleanup_test

import (
	"errors"
	"testing"

	"github.com/ryanmoran/dockhand/internal/cleanup"
	"github.com/stretchr/testify/assert"
)

func TestManager(t *testing.T) {
	t.Run("runs cleanups in reverse registration order", func(t *testing.T) {
		manager := cleanup.NewManager()

		var order []string
		manager.Add("first", func() error {
			order = append(order, "first")
			return nil
		})
		manager.Add("second", func() error {
			order = append(order, "second")
			return nil
		})
		manager.Add("third", func() error {
			order = append(order, "third")
			return nil
		})

		manager.Execute(nil)

		assert.Equal(t, []string{"third", "second", "first"}, order)
	})

	t.Run("reports failures and keeps going", func(t *testing.T) {
		manager := cleanup.NewManager()

		var ran []string
		manager.Add("session", func() error {
			ran = append(ran, "session")
			return nil
		})
		manager.Add("connection", func() error {
			ran = append(ran, "connection")
			return errors.New("already closed")
		})

		var reported []string
		manager.Execute(func(name string, err error) {
			reported = append(reported, name+": "+err.Error())
		})

		assert.Equal(t, []string{"connection", "session"}, ran)
		assert.Equal(t, []string{"connection: already closed"}, reported)
	})

	t.Run("a second Execute is a no-op", func(t *testing.T) {
		manager := cleanup.NewManager()

		count := 0
		manager.Add("resource", func() error {
			count++
			return nil
		})

		manager.Execute(nil)
		manager.Execute(nil)

		assert.Equal(t, 1, count)
	})
}
