// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package wire

// Identity is an object identity: a name and an optional category. A
// proxy whose Name is empty is the encoding of a nil proxy.
type Identity struct {
	Name     string
	Category string
}

func (id Identity) IsNil() bool { return id.Name == "" }

// Endpoint is one opaque transport endpoint of a proxy. Resolving its
// Bytes into a concrete transport address is out of scope for this
// decoder (spec.md Non-goals: no transport/invocation layer) — it is
// preserved verbatim so a caller with endpoint-type-specific knowledge
// can parse it further.
type Endpoint struct {
	Type     int16
	Encoding EncodingVersion
	Bytes    []byte
}

// ProxyData is a fully decoded proxy reference: identity, facet, and
// either a direct endpoint list or an (AdapterId != "") indirect
// reference.
type ProxyData struct {
	Identity  Identity
	Facet     string
	Secure    bool
	Protocol  EncodingVersion
	Encoding  EncodingVersion
	Endpoints []Endpoint
	AdapterId string
}

func (d *Decoder) readIdentity() (Identity, error) {
	name, err := d.r.ReadString()
	if err != nil {
		return Identity{}, err
	}
	category, err := d.r.ReadString()
	if err != nil {
		return Identity{}, err
	}
	return Identity{Name: name, Category: category}, nil
}

func (d *Decoder) readFacet() (string, error) {
	n, err := d.r.ReadAndCheckSeqSize(1)
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", nil
	}
	if n != 1 {
		return "", marshalError("facet path must have 0 or 1 elements")
	}
	return d.r.ReadString()
}

func (d *Decoder) readEndpoint() (Endpoint, error) {
	t, err := d.r.ReadInt16()
	if err != nil {
		return Endpoint{}, err
	}
	body, enc, err := d.ReadEncapsulation()
	if err != nil {
		return Endpoint{}, err
	}
	return Endpoint{Type: t, Encoding: enc, Bytes: body}, nil
}

// ReadProxy decodes a proxy reference. It returns (nil, nil) for a nil
// proxy. If factory is non-nil, it is called with the decoded identity
// and facet and its result is returned (the other ProxyData fields are
// not passed to it); otherwise the raw ProxyData is returned as-is.
func (d *Decoder) ReadProxy(factory ProxyFactory) (any, error) {
	id, err := d.readIdentity()
	if err != nil {
		return nil, err
	}
	if id.IsNil() {
		return nil, nil
	}

	facet, err := d.readFacet()
	if err != nil {
		return nil, err
	}
	mode, err := d.r.ReadByte()
	if err != nil {
		return nil, err
	}
	_ = mode // invocation mode: twoway/oneway/etc, not meaningful without a transport layer
	secure, err := d.r.ReadBool()
	if err != nil {
		return nil, err
	}
	protoMajor, err := d.r.ReadByte()
	if err != nil {
		return nil, err
	}
	protoMinor, err := d.r.ReadByte()
	if err != nil {
		return nil, err
	}
	encMajor, err := d.r.ReadByte()
	if err != nil {
		return nil, err
	}
	encMinor, err := d.r.ReadByte()
	if err != nil {
		return nil, err
	}

	pd := ProxyData{
		Identity: id,
		Facet:    facet,
		Secure:   secure,
		Protocol: EncodingVersion{Major: protoMajor, Minor: protoMinor},
		Encoding: EncodingVersion{Major: encMajor, Minor: encMinor},
	}

	numEndpoints, err := d.r.ReadSize()
	if err != nil {
		return nil, err
	}
	if numEndpoints > 0 {
		pd.Endpoints = make([]Endpoint, numEndpoints)
		for i := range pd.Endpoints {
			ep, err := d.readEndpoint()
			if err != nil {
				return nil, err
			}
			pd.Endpoints[i] = ep
		}
	} else {
		adapterId, err := d.r.ReadString()
		if err != nil {
			return nil, err
		}
		pd.AdapterId = adapterId
	}

	if factory != nil {
		return factory.NewProxy(id, facet)
	}
	return pd, nil
}
