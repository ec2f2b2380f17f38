package manifest

import (
	"bytes"
	"fmt"
	"os"

	"github.com/ProtonMail/go-crypto/openpgp"
)

// SignatureSuffix is appended to a signed file's path.
const SignatureSuffix = ".asc"

// SignFile writes an ASCII-armored detached OpenPGP signature of path to
// path+".asc" using the first private key in keyFile. passphrase unlocks an
// encrypted key and is ignored otherwise.
func SignFile(path, keyFile string, passphrase []byte) (string, error) {
	signer, err := loadSigner(keyFile, passphrase)
	if err != nil {
		return "", err
	}

	message, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer message.Close()

	var sig bytes.Buffer
	if err := openpgp.ArmoredDetachSign(&sig, signer, message, nil); err != nil {
		return "", fmt.Errorf("signing %s: %w", path, err)
	}
	sig.WriteByte('\n')

	sigPath := path + SignatureSuffix
	if err := os.WriteFile(sigPath, sig.Bytes(), 0644); err != nil {
		return "", fmt.Errorf("writing %s: %w", sigPath, err)
	}
	return sigPath, nil
}

// VerifyFile checks the detached signature sigPath of path against the keys
// in keyFile.
func VerifyFile(path, sigPath, keyFile string) error {
	keyring, err := readKeyRing(keyFile)
	if err != nil {
		return err
	}

	message, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer message.Close()

	signature, err := os.Open(sigPath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", sigPath, err)
	}
	defer signature.Close()

	if _, err := openpgp.CheckArmoredDetachedSignature(keyring, message, signature, nil); err != nil {
		return fmt.Errorf("verifying signature of %s: %w", path, err)
	}
	return nil
}

func readKeyRing(keyFile string) (openpgp.EntityList, error) {
	f, err := os.Open(keyFile)
	if err != nil {
		return nil, fmt.Errorf("opening key file: %w", err)
	}
	defer f.Close()

	keyring, err := openpgp.ReadArmoredKeyRing(f)
	if err != nil {
		return nil, fmt.Errorf("reading key file %s: %w", keyFile, err)
	}
	return keyring, nil
}

func loadSigner(keyFile string, passphrase []byte) (*openpgp.Entity, error) {
	keyring, err := readKeyRing(keyFile)
	if err != nil {
		return nil, err
	}

	for _, entity := range keyring {
		if entity.PrivateKey == nil {
			continue
		}
		if entity.PrivateKey.Encrypted {
			if len(passphrase) == 0 {
				return nil, fmt.Errorf("private key in %s is encrypted and no passphrase was given", keyFile)
			}
			if err := entity.PrivateKey.Decrypt(passphrase); err != nil {
				return nil, fmt.Errorf("decrypting private key: %w", err)
			}
		}
		for _, sub := range entity.Subkeys {
			if sub.PrivateKey != nil && sub.PrivateKey.Encrypted && len(passphrase) > 0 {
				if err := sub.PrivateKey.Decrypt(passphrase); err != nil {
					return nil, fmt.Errorf("decrypting private subkey: %w", err)
				}
			}
		}
		return entity, nil
	}
	return nil, fmt.Errorf("no private key found in %s", keyFile)
}
