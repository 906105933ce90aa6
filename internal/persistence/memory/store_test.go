package memory

import (
	"testing"

	"example.com/exercisetracker/internal/domain"
	"example.com/exercisetracker/internal/persistence/storetest"
)

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) domain.Store {
		return NewStore()
	})
}
