package driver

// taskIDs is the wrapping 16-bit task id counter. Zero is never issued.
// It is only used inside a fill pass, which is serialised by the driver.
type taskIDs struct {
	next uint16
}

func newTaskIDs() taskIDs {
	return taskIDs{next: 1}
}

// Next returns the next id and advances the counter, skipping zero.
func (t *taskIDs) Next() uint16 {
	if t.next == 0 {
		t.next = 1
	}
	id := t.next
	t.next++
	if t.next == 0 {
		t.next = 1
	}
	return id
}

// Peek returns the id Next would return.
func (t *taskIDs) Peek() uint16 {
	if t.next == 0 {
		return 1
	}
	return t.next
}
