package filesystem

import (
	"github.com/S1riyS/ghost-vfs/internal/models"
	"github.com/S1riyS/ghost-vfs/internal/tasking"
)

// Delegate is implemented by every filesystem provider. Request methods
// start (or repeat) a transaction and return its id; they may complete it
// synchronously by filling the handler's result fields and marking the
// transaction finished. Finish methods run once the transaction is known to
// be finished, on the engine side.
//
// A delegate that sees WantsRepeatTransaction on a handler must reuse
// RepeatedTransaction instead of issuing a new id.
//
// Delegates never touch the node tree. Discovery and directory reads report
// a DiscoveredEntry which the engine validates and materializes.
type Delegate interface {
	RequestDiscovery(requester *tasking.Thread, parent *Node, child string, h *DiscoveryHandler) models.TransactionID
	FinishDiscovery(requester *tasking.Thread, h *DiscoveryHandler)

	RequestRead(requester *tasking.Thread, node *Node, length int64, buffer []byte, fd *Descriptor, h *ReadHandler) models.TransactionID
	FinishRead(requester *tasking.Thread, h *ReadHandler)

	RequestWrite(requester *tasking.Thread, node *Node, length int64, buffer []byte, fd *Descriptor, h *WriteHandler) models.TransactionID
	FinishWrite(requester *tasking.Thread, h *WriteHandler)

	RequestGetLength(requester *tasking.Thread, node *Node, h *GetLengthHandler) models.TransactionID
	FinishGetLength(requester *tasking.Thread, h *GetLengthHandler)

	RequestReadDirectory(requester *tasking.Thread, node *Node, position int, h *ReadDirectoryHandler) models.TransactionID
	FinishReadDirectory(requester *tasking.Thread, h *ReadDirectoryHandler)
}

// DiscoveredEntry is what a delegate knows about one of its entries.
type DiscoveredEntry struct {
	Name   string
	PhysID models.PhysID
	Type   models.NodeType
}
