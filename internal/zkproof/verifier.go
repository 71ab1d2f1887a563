// verifier.go - Groth16 verification adapter and key management.
//
// Groth16Verifier is the reference ProofVerifier: it rebuilds the public
// witness from the ordered inputs [root, nullifierHash, recipient,
// denomination] and verifies the serialized proof. Key setup follows the
// generate-or-load-from-disk pattern so the (expensive) trusted setup runs
// once per circuit shape.

package zkproof

import (
	"bytes"
	"math/big"
	"os"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
)

// PublicInputCount is the fixed number of ordered public inputs.
const PublicInputCount = 4

// CompileWithdrawCircuit compiles the withdraw constraint system for a tree
// of the given depth.
func CompileWithdrawCircuit(depth int) (constraint.ConstraintSystem, error) {
	return frontend.Compile(ecc.BW6_761.ScalarField(), r1cs.NewBuilder, NewWithdrawCircuit(depth))
}

// Groth16Verifier verifies withdrawal proofs against a fixed verifying key.
type Groth16Verifier struct {
	vk    groth16.VerifyingKey
	depth int
}

// NewGroth16Verifier wraps a verifying key for a tree of the given depth.
func NewGroth16Verifier(vk groth16.VerifyingKey, depth int) *Groth16Verifier {
	return &Groth16Verifier{vk: vk, depth: depth}
}

// Verify implements mixer.ProofVerifier. It is a pure predicate: any
// malformed proof, wrong input count or failed pairing check yields false.
func (v *Groth16Verifier) Verify(proof []byte, publicInputs []*big.Int) bool {
	if len(publicInputs) != PublicInputCount {
		return false
	}
	assignment := NewWithdrawCircuit(v.depth)
	assignment.Root = publicInputs[0]
	assignment.NullifierHash = publicInputs[1]
	assignment.Recipient = publicInputs[2]
	assignment.Denomination = publicInputs[3]

	w, err := frontend.NewWitness(assignment, ecc.BW6_761.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return false
	}
	p := groth16.NewProof(ecc.BW6_761)
	if _, err := p.ReadFrom(bytes.NewReader(proof)); err != nil {
		return false
	}
	return groth16.Verify(p, v.vk, w) == nil
}

// SaveProvingKey saves a Groth16 proving key to disk.
func SaveProvingKey(path string, pk groth16.ProvingKey) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = pk.WriteTo(f)
	return err
}

// SaveVerifyingKey saves a Groth16 verifying key to disk.
func SaveVerifyingKey(path string, vk groth16.VerifyingKey) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = vk.WriteTo(f)
	return err
}

// LoadProvingKey loads a Groth16 proving key from disk.
func LoadProvingKey(path string) (groth16.ProvingKey, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	pk := groth16.NewProvingKey(ecc.BW6_761)
	_, err = pk.ReadFrom(f)
	return pk, err
}

// LoadVerifyingKey loads a Groth16 verifying key from disk.
func LoadVerifyingKey(path string) (groth16.VerifyingKey, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	vk := groth16.NewVerifyingKey(ecc.BW6_761)
	_, err = vk.ReadFrom(f)
	return vk, err
}

// SetupOrLoadKeys generates or loads Groth16 keys for the circuit.
// If keys exist on disk, loads them; otherwise, generates and saves new keys.
func SetupOrLoadKeys(ccs constraint.ConstraintSystem, pkPath, vkPath string) (groth16.ProvingKey, groth16.VerifyingKey, error) {
	pk, pkErr := LoadProvingKey(pkPath)
	vk, vkErr := LoadVerifyingKey(vkPath)
	if pkErr == nil && vkErr == nil {
		return pk, vk, nil
	}
	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		return nil, nil, err
	}
	if err := SaveProvingKey(pkPath, pk); err != nil {
		return nil, nil, err
	}
	if err := SaveVerifyingKey(vkPath, vk); err != nil {
		return nil, nil, err
	}
	return pk, vk, nil
}
