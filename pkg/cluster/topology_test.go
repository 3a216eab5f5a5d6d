package cluster

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Eventual-Inc/daft-launcher/pkg/aws"
)

type fakeInventory struct {
	records []aws.InstanceRecord
	err     error
}

func (f *fakeInventory) Instances() ([]aws.InstanceRecord, error) {
	return f.records, f.err
}

func record(id string, state aws.InstanceState, address, keyName, cluster, role string) aws.InstanceRecord {
	return aws.NewInstanceRecord(id, state, address, "", keyName, map[string]string{
		aws.ClusterNameTag: cluster,
		aws.NodeRoleTag:    role,
	})
}

var _ = Describe("Resolver", func() {
	Describe("Snapshot", func() {
		It("propagates inventory failures", func() {
			queryErr := errors.New("describe failed")
			resolver := NewResolver(&fakeInventory{err: queryErr})

			_, err := resolver.Snapshot()
			Expect(err).To(MatchError(queryErr))
		})

		It("groups records by state in first-seen order", func() {
			resolver := NewResolver(&fakeInventory{records: []aws.InstanceRecord{
				record("i-1", aws.StateStopped, "", "key", "alpha", aws.RoleHead),
				record("i-2", aws.StateRunning, "1.1.1.1", "key", "alpha", aws.RoleWorker),
				record("i-3", aws.StateStopped, "", "key", "beta", aws.RoleWorker),
				record("i-4", aws.StatePending, "", "key", "beta", aws.RoleHead),
			}})

			snap, err := resolver.Snapshot()
			Expect(err).NotTo(HaveOccurred())

			groups := snap.Groups()
			Expect(groups).To(HaveLen(3))
			Expect(groups[0].State).To(Equal(aws.StateStopped))
			Expect(groups[1].State).To(Equal(aws.StateRunning))
			Expect(groups[2].State).To(Equal(aws.StatePending))

			Expect(groups[0].Records).To(HaveLen(2))
			Expect(groups[0].Records[0].ID).To(Equal("i-1"))
			Expect(groups[0].Records[1].ID).To(Equal("i-3"))

			Expect(snap.Running()).To(HaveLen(1))
			Expect(snap.Running()[0].ID).To(Equal("i-2"))
		})

		It("returns no running records for an empty inventory", func() {
			resolver := NewResolver(&fakeInventory{})

			snap, err := resolver.Snapshot()
			Expect(err).NotTo(HaveOccurred())
			Expect(snap.Groups()).To(BeEmpty())
			Expect(snap.Running()).To(BeNil())
		})
	})

	Describe("ResolveHead", func() {
		It("finds the single running head of the named cluster", func() {
			resolver := NewResolver(&fakeInventory{records: []aws.InstanceRecord{
				record("i-1", aws.StateRunning, "9.9.9.9", "other-key", "other", aws.RoleHead),
				record("i-2", aws.StateRunning, "1.2.3.4", "my-key", "analytics", aws.RoleHead),
				record("i-3", aws.StateRunning, "5.6.7.8", "my-key", "analytics", aws.RoleWorker),
			}})

			head, err := resolver.ResolveHead("analytics")
			Expect(err).NotTo(HaveOccurred())
			Expect(head.Address).To(Equal("1.2.3.4"))
			Expect(head.KeyName).To(Equal("my-key"))
		})

		It("ignores stopped heads of the same cluster", func() {
			resolver := NewResolver(&fakeInventory{records: []aws.InstanceRecord{
				record("i-1", aws.StateStopped, "", "my-key", "analytics", aws.RoleHead),
			}})

			_, err := resolver.ResolveHead("analytics")
			Expect(err).To(MatchError(ErrClusterNotRunning))
		})

		It("fails when no cluster matches the name", func() {
			resolver := NewResolver(&fakeInventory{})

			_, err := resolver.ResolveHead("missing")
			Expect(err).To(MatchError(ErrClusterNotRunning))
		})

		It("refuses an ambiguous topology with two running heads", func() {
			resolver := NewResolver(&fakeInventory{records: []aws.InstanceRecord{
				record("i-1", aws.StateRunning, "1.1.1.1", "k", "analytics", aws.RoleHead),
				record("i-2", aws.StateRunning, "2.2.2.2", "k", "analytics", aws.RoleHead),
			}})

			_, err := resolver.ResolveHead("analytics")
			Expect(err).To(MatchError(ErrMultipleHeadNodes))
			Expect(err.Error()).To(ContainSubstring("i-1"))
			Expect(err.Error()).To(ContainSubstring("i-2"))
		})

		It("distinguishes an addressless head from an absent one", func() {
			resolver := NewResolver(&fakeInventory{records: []aws.InstanceRecord{
				record("i-1", aws.StateRunning, "", "k", "analytics", aws.RoleHead),
			}})

			_, err := resolver.ResolveHead("analytics")
			Expect(err).To(MatchError(ErrHeadNodeUnreachable))
			Expect(errors.Is(err, ErrClusterNotRunning)).To(BeFalse())
		})
	})
})
