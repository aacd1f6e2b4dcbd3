package ingress

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReceiveQueue_DrainReturnsArrivalOrder(t *testing.T) {
	q := NewReceiveQueue()

	for i := int64(0); i < 5; i++ {
		q.PushPacket(PacketEvent{ConnectionID: i, Data: []byte{byte(i)}})
	}

	got := q.DrainPackets()
	assert.Len(t, got, 5)
	for i, ev := range got {
		assert.Equal(t, int64(i), ev.ConnectionID)
	}

	assert.Empty(t, q.DrainPackets())
}

func TestReceiveQueue_StreamsAreIndependent(t *testing.T) {
	q := NewReceiveQueue()

	q.PushConnect(ConnectEvent{ConnectionID: 1})
	q.PushPacket(PacketEvent{ConnectionID: 1, Data: []byte("x")})

	assert.Len(t, q.DrainConnects(), 1)
	assert.Len(t, q.DrainPackets(), 1)
	assert.Empty(t, q.DrainDisconnects())
}

func TestReceiveQueue_ConcurrentPushesAllLand(t *testing.T) {
	q := NewReceiveQueue()

	var wg sync.WaitGroup
	const producers = 50
	wg.Add(producers)
	for i := 0; i < producers; i++ {
		go func(id int64) {
			defer wg.Done()
			q.PushPacket(PacketEvent{ConnectionID: id})
		}(int64(i))
	}
	wg.Wait()

	assert.Len(t, q.DrainPackets(), producers)
}
