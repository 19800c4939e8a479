package lock

// Pending reports how many callers hold or wait for key.
func (k *Keyed) Pending(key string) int {
	k.mu.Lock()
	defer k.mu.Unlock()

	if e, ok := k.entries[key]; ok {
		return e.refs
	}
	return 0
}
