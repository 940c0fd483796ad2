package insertdest

import (
	"github.com/cockroachdb/errors"

	"insertdest/bus"
	"insertdest/internal/base"
	"insertdest/storagemgr"
)

// sealHandle performs the four-step seal protocol: rebuild the block's
// on-block indexes, record its id (via record), notify the foreman, then
// release the handle. It is shared by every policy so the protocol's step
// order can't drift between them.
func sealHandle(threadID bus.ThreadID, notifier *bus.Notifier, h *storagemgr.BlockHandle, record func(base.BlockID)) error {
	id := h.ID()

	h.Rebuild()
	record(id)

	notifyErr := notifier.NotifySeal(threadID, id)

	// The handle is released regardless of notification outcome: a failed
	// notification is fatal to the query, but this destination must not
	// leak the pin while that fatal error propagates.
	h.Release()

	if notifyErr != nil {
		return notifyErr
	}
	return nil
}

func wrapStorageErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, base.ErrStorageUnavailable) {
		return err
	}
	return errors.Wrap(base.ErrStorageUnavailable, err.Error())
}
