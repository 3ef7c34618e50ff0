package eventhub

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// PartitionError is returned when the configured partition is not one of
// the partitions the broker reports for the event hub.
type PartitionError struct {
	PartitionID string
	Available   []string
}

func (e *PartitionError) Error() string {
	return fmt.Sprintf("partition %q does not exist, available partitions: [%s]",
		e.PartitionID, strings.Join(e.Available, ", "))
}

// validatePartition fetches the live partition set and checks that
// partitionID is part of it. The set is returned either way.
func validatePartition(c conn, partitionID string) ([]string, error) {
	ids, err := c.Partitions()
	if err != nil {
		return nil, errors.Wrap(err, "unable to fetch partition ids")
	}
	for _, id := range ids {
		if id == partitionID {
			return ids, nil
		}
	}
	return ids, &PartitionError{PartitionID: partitionID, Available: ids}
}
