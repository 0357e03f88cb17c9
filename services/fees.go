package services

import "math/big"

// MaxFeeBps caps the protocol fee at 30 basis points. Enforced when the fee
// is configured, never at payout time.
const MaxFeeBps = 30

// bpsDenominator is the basis-point scale.
var bpsDenominator = big.NewInt(10000)

// CalculateFee splits an escrowed amount into protocol fee and relayer
// payout. The fee truncates toward zero, so fee + payout always equals the
// input exactly; rounding up would over-collect.
func CalculateFee(sourceAmount *big.Int, feeBps uint32) (fee, payout *big.Int) {
	fee = new(big.Int).Mul(sourceAmount, big.NewInt(int64(feeBps)))
	fee.Quo(fee, bpsDenominator)
	payout = new(big.Int).Sub(sourceAmount, fee)
	return fee, payout
}
