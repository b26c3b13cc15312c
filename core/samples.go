package core

import "time"

// SampleSet is the fixed illustrative data merged into every published
// snapshot while the dashboard has no history of its own.
type SampleSet struct {
	AsBuyer  []Transaction
	AsSeller []Transaction
	Logs     []LogMessage
}

// DemoSamples returns the demo records, timestamped relative to now
func DemoSamples(now time.Time) SampleSet {
	ms := now.UnixMilli()
	day := int64(24 * time.Hour / time.Millisecond)
	hour := int64(time.Hour / time.Millisecond)
	minute := int64(time.Minute / time.Millisecond)

	return SampleSet{
		AsBuyer: []Transaction{
			{
				ShortID:      "0x824...f1e2",
				FullID:       "0x824483f78ecd4361a1ff798b3bf15de6f1e2abc3",
				Counterparty: "0x55da85df3dc04fe8a412c5668d876de11223344",
				Amount:       "1.50 SUI",
				Status:       StatusCompleted,
				Role:         RoleBuyer,
				Timestamp:    ms - 2*day,
			},
			{
				ShortID:      "0x081...4fae",
				FullID:       "0x081c474886b049b4b668faabf4965eb74fae7788",
				Counterparty: "0x2b30193e83b3c39211929cad0e1f2031aabbccdd",
				Amount:       "10.00 SUI",
				Status:       StatusActive,
				Role:         RoleBuyer,
				Timestamp:    ms - 5*hour,
			},
			{
				ShortID:      "0x1a2...f201",
				FullID:       "0x1a2f082d72a2b28100818b9cad0e1f201a2b3c4d",
				Counterparty: "0xf81d4fae7dec11d0a76500a0c91e6bf6f1e2a3b4",
				Amount:       "0.50 SUI",
				Status:       StatusFunded,
				Role:         RoleBuyer,
				Timestamp:    ms - 10*minute,
			},
		},
		AsSeller: []Transaction{
			{
				ShortID:      "0xbc2...9900",
				FullID:       "0xbc2b3c4d5e6f7a8b9c0d1e2f3a4b5c6d7e8f9900",
				Counterparty: "0x4192bff0e1e043ce44db912808c32493aabbcc21",
				Amount:       "5.25 SUI",
				Status:       StatusCompleted,
				Role:         RoleSeller,
				Timestamp:    ms - 5*day,
			},
			{
				ShortID:      "0xd92...3344",
				FullID:       "0xd9222d645c754940aaf5af622d1eb8efaa334455",
				Counterparty: "0xcdd71b404d62494aa8b738578c715dc45aa6677",
				Amount:       "2.00 SUI",
				Status:       StatusActive,
				Role:         RoleSeller,
				Timestamp:    ms - day,
			},
			{
				ShortID:      "0xe3d...1122",
				FullID:       "0xe3d82d5d6d3cbd3c3c4d5e6f7a8b9c0d11223344",
				Counterparty: "0x1a2f082d72a2b28100818b9cad0e1f2031aabbcc",
				Amount:       "1.20 SUI",
				Status:       StatusFunded,
				Role:         RoleSeller,
				Timestamp:    ms - 30*minute,
			},
		},
		Logs: []LogMessage{
			{ID: "m1", Time: "10:05", Content: "Escrow 0x1a2...f201 was created by the buyer.", Kind: LogSuccess},
			{ID: "m2", Time: "Yesterday", Content: "You received a 2.00 SUI request from counterparty 0xcdd...677.", Kind: LogInfo},
		},
	}
}
