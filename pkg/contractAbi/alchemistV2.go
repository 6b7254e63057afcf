package contractAbi

// AlchemistV2AbiJson covers the events the indexer decodes and the view
// functions the auxiliary state fetcher calls. The full contract ABI is much
// larger; only the surface we touch is embedded.
const AlchemistV2AbiJson = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "yieldToken", "type": "address"}
    ],
    "name": "AddYieldToken",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "sender", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "yieldToken", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "amount", "type": "uint256"},
      {"indexed": false, "internalType": "address", "name": "recipient", "type": "address"}
    ],
    "name": "Deposit",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "yieldToken", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "minimumAmountOut", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "totalHarvested", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "credit", "type": "uint256"}
    ],
    "name": "Harvest",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "sender", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "yieldToken", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "amount", "type": "uint256"}
    ],
    "name": "Donate",
    "type": "event"
  },
  {
    "inputs": [
      {"internalType": "address", "name": "yieldToken", "type": "address"}
    ],
    "name": "getYieldTokenParameters",
    "outputs": [
      {
        "components": [
          {"internalType": "uint8", "name": "decimals", "type": "uint8"},
          {"internalType": "address", "name": "underlyingToken", "type": "address"},
          {"internalType": "address", "name": "adapter", "type": "address"},
          {"internalType": "uint256", "name": "maximumLoss", "type": "uint256"},
          {"internalType": "uint256", "name": "maximumExpectedValue", "type": "uint256"},
          {"internalType": "uint256", "name": "creditUnlockRate", "type": "uint256"},
          {"internalType": "uint256", "name": "activeBalance", "type": "uint256"},
          {"internalType": "uint256", "name": "harvestableBalance", "type": "uint256"},
          {"internalType": "uint256", "name": "totalShares", "type": "uint256"},
          {"internalType": "bool", "name": "enabled", "type": "bool"}
        ],
        "internalType": "struct IAlchemistV2State.YieldTokenParams",
        "name": "params",
        "type": "tuple"
      }
    ],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "address", "name": "owner", "type": "address"},
      {"internalType": "address", "name": "yieldToken", "type": "address"}
    ],
    "name": "positions",
    "outputs": [
      {"internalType": "uint256", "name": "shares", "type": "uint256"},
      {"internalType": "uint256", "name": "lastAccruedWeight", "type": "uint256"}
    ],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "protocolFee",
    "outputs": [
      {"internalType": "uint256", "name": "", "type": "uint256"}
    ],
    "stateMutability": "view",
    "type": "function"
  }
]`

// Multicall3AbiJson is the aggregate3 slice of the canonical Multicall3
// contract.
const Multicall3AbiJson = `[
  {
    "inputs": [
      {
        "components": [
          {"internalType": "address", "name": "target", "type": "address"},
          {"internalType": "bool", "name": "allowFailure", "type": "bool"},
          {"internalType": "bytes", "name": "callData", "type": "bytes"}
        ],
        "internalType": "struct Multicall3.Call3[]",
        "name": "calls",
        "type": "tuple[]"
      }
    ],
    "name": "aggregate3",
    "outputs": [
      {
        "components": [
          {"internalType": "bool", "name": "success", "type": "bool"},
          {"internalType": "bytes", "name": "returnData", "type": "bytes"}
        ],
        "internalType": "struct Multicall3.Result[]",
        "name": "returnData",
        "type": "tuple[]"
      }
    ],
    "stateMutability": "payable",
    "type": "function"
  }
]`
