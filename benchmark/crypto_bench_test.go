package benchmark

import (
	"crypto/rand"
	"fmt"
	"testing"

	"github.com/pubky-x-project/pkhost/crypto"
	"github.com/pubky-x-project/pkhost/crypto/zbase32"
)

// BenchmarkKeyGeneration benchmarks Ed25519 keypair generation
func BenchmarkKeyGeneration(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, err := crypto.GenerateKeypair()
		if err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkSigning benchmarks message signing
func BenchmarkSigning(b *testing.B) {
	message := make([]byte, 1024)
	rand.Read(message)

	b.Run("Raw", func(b *testing.B) {
		kp, _ := crypto.GenerateKeypair()
		b.ResetTimer()
		b.ReportAllocs()

		for i := 0; i < b.N; i++ {
			_ = kp.Sign(message)
		}
	})

	b.Run("DomainSeparated", func(b *testing.B) {
		kp, _ := crypto.GenerateKeypair()
		b.ResetTimer()
		b.ReportAllocs()

		for i := 0; i < b.N; i++ {
			_ = crypto.SignWithTag(kp, "PUBKY:AUTH", message)
		}
	})
}

// BenchmarkVerification benchmarks signature verification
func BenchmarkVerification(b *testing.B) {
	message := make([]byte, 1024)
	rand.Read(message)

	b.Run("Raw", func(b *testing.B) {
		kp, _ := crypto.GenerateKeypair()
		sig := kp.Sign(message)
		b.ResetTimer()
		b.ReportAllocs()

		for i := 0; i < b.N; i++ {
			if !crypto.Verify(kp.Public(), message, sig) {
				b.Fatal("verification failed")
			}
		}
	})

	b.Run("DomainSeparated", func(b *testing.B) {
		kp, _ := crypto.GenerateKeypair()
		sig := crypto.SignWithTag(kp, "PUBKY:AUTH", message)
		b.ResetTimer()
		b.ReportAllocs()

		for i := 0; i < b.N; i++ {
			if !crypto.VerifyWithTag(kp.Public(), "PUBKY:AUTH", message, sig) {
				b.Fatal("verification failed")
			}
		}
	})
}

// BenchmarkBlake3 benchmarks content hashing at entry-like sizes
func BenchmarkBlake3(b *testing.B) {
	sizes := []int{64, 1024, 16384, 262144}

	for _, size := range sizes {
		data := make([]byte, size)
		rand.Read(data)

		b.Run(fmt.Sprintf("%dB", size), func(b *testing.B) {
			b.SetBytes(int64(size))
			b.ReportAllocs()

			for i := 0; i < b.N; i++ {
				_ = crypto.Blake3(data)
			}
		})
	}
}

// BenchmarkPublicKeyEncoding benchmarks the z-base-32 textual roundtrip
func BenchmarkPublicKeyEncoding(b *testing.B) {
	kp, _ := crypto.GenerateKeypair()
	pk := kp.Public()
	encoded := pk.String()

	b.Run("Encode", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			_ = zbase32.Encode(pk[:])
		}
	})

	b.Run("Parse", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			if _, err := crypto.ParsePublicKey(encoded); err != nil {
				b.Fatal(err)
			}
		}
	})
}
